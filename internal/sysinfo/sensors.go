package sysinfo

import (
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/halvard/sysmond/internal/logger"
	gosensors "github.com/shirou/gopsutil/v4/sensors"
)

var sensorsTemperatures = gosensors.SensorsTemperatures

func (s *Source) readSensors() SensorStat {
	var stat SensorStat

	temps, err := sensorsTemperatures()
	if err != nil {
		logger.Debug().Err(err).Msg("temperature sensors unavailable")
	}
	for _, temp := range temps {
		stat.Temperatures = append(stat.Temperatures, TemperatureStat{
			Sensor:   temp.SensorKey,
			Label:    temp.SensorKey,
			Current:  temp.Temperature,
			High:     temp.High,
			Critical: temp.Critical,
		})
	}

	stat.Temperatures = append(stat.Temperatures, readECTemperatures()...)

	stat.Fans = CollectFans(hwmonRoot)
	stat.Fans = append(stat.Fans, readECFans()...)

	return stat
}

// CollectFans enumerates hwmon fan inputs under root, pairing each
// fanN_input with its pwmN node when one exists.
func CollectFans(root string) []FanStat {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	var fans []FanStat
	for _, entry := range entries {
		chipPath := filepath.Join(root, entry.Name())
		chipName := readString(filepath.Join(chipPath, "name"))
		if chipName == "" {
			chipName = entry.Name()
		}

		files, err := os.ReadDir(chipPath)
		if err != nil {
			continue
		}

		for _, file := range files {
			name := file.Name()
			if !strings.HasPrefix(name, "fan") || !strings.HasSuffix(name, "_input") {
				continue
			}
			prefix := strings.TrimSuffix(name, "_input") // fan1, fan2, ...

			fan := FanStat{
				Label: chipName + "-" + prefix,
				Path:  filepath.Join(chipPath, name),
				PWM:   -1,
			}
			fan.RPM, _ = readInt(fan.Path)

			pwmPath := filepath.Join(chipPath, strings.Replace(prefix, "fan", "pwm", 1))
			if value, ok := readInt(pwmPath); ok {
				fan.PWM = value
				fan.PWMPath = pwmPath
			}

			fans = append(fans, fan)
		}
	}

	return fans
}

// The msi-ec platform driver exposes realtime CPU and GPU temperatures and
// fan speeds outside of hwmon.
func readECTemperatures() []TemperatureStat {
	var temps []TemperatureStat
	for _, label := range []string{"cpu", "gpu"} {
		path := filepath.Join(msiECRoot, label, "realtime_temperature")
		if value, ok := readInt(path); ok {
			temps = append(temps, TemperatureStat{
				Sensor:  "msi-ec",
				Label:   "msi-ec " + label,
				Current: float64(value),
			})
		}
	}

	return temps
}

func readECFans() []FanStat {
	var fans []FanStat
	for _, label := range []string{"cpu", "gpu"} {
		path := filepath.Join(msiECRoot, label, "realtime_fan_speed")
		if value, ok := readInt(path); ok {
			fans = append(fans, FanStat{
				Label: "msi-ec-" + label,
				RPM:   value,
				Path:  path,
				PWM:   -1,
			})
		}
	}

	return fans
}

func (s *Source) readBattery() BatteryStat {
	var stat BatteryStat

	if _, err := os.Stat(powerSupplyPath); err != nil {
		return stat
	}
	stat.Present = true

	stat.Capacity, _ = readInt(filepath.Join(powerSupplyPath, "capacity"))
	stat.Status = readString(filepath.Join(powerSupplyPath, "status"))
	stat.StartThreshold, _ = readInt(filepath.Join(powerSupplyPath, "charge_control_start_threshold"))
	stat.EndThreshold, _ = readInt(filepath.Join(powerSupplyPath, "charge_control_end_threshold"))

	return stat
}
