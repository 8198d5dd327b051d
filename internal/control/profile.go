package control

import (
	"sort"
	"strings"

	"codeberg.org/halvard/sysmond/internal/config"
)

// Profiles applies named configuration profiles, each bundling a governor,
// a frequency cap and an optional PWM setting.
type Profiles struct {
	Power    *Power
	Fans     *Fans
	Profiles map[string]config.Profile
}

func NewProfiles(power *Power, fans *Fans, profiles map[string]config.Profile) *Profiles {
	return &Profiles{Power: power, Fans: fans, Profiles: profiles}
}

// Names returns the configured profile names, sorted.
func (p *Profiles) Names() []string {
	names := make([]string, 0, len(p.Profiles))
	for name := range p.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply runs every step the profile defines. The result aggregates the
// per-step messages; OK only when every step succeeded.
func (p *Profiles) Apply(name string) Result {
	profile, ok := p.Profiles[name]
	if !ok {
		return failure("profile %q not found", name)
	}

	allOK := true
	var msgs []string

	if profile.Governor != "" {
		res := p.Power.SetGovernor(profile.Governor)
		allOK = allOK && res.OK
		msgs = append(msgs, res.Message)
	}

	if profile.MaxFreqKHz > 0 {
		res := p.Power.SetMaxFreq(profile.MaxFreqKHz)
		allOK = allOK && res.OK
		msgs = append(msgs, res.Message)
	}

	if profile.PWMPath != "" {
		res := p.Fans.SetPWM(profile.PWMPath, profile.PWM)
		allOK = allOK && res.OK
		msgs = append(msgs, res.Message)
	}

	msg := strings.Join(msgs, " | ")
	if msg == "" {
		msg = "profile defines no actions"
	}
	return Result{OK: allOK, Message: msg}
}
