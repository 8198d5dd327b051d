package sysinfo

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"codeberg.org/halvard/sysmond/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const (
	gpuQueryTimeout = 2 * time.Second
	bytesPerMiB     = 1024 * 1024
)

// nvidia-smi query fields, in parse order.
const nvidiaSMIQuery = "--query-gpu=name,index,utilization.gpu,utilization.memory," +
	"memory.total,memory.used,temperature.gpu,power.draw"

// readGPUs prefers NVML when the library loads, then falls back to the
// vendor CLIs. All paths are best effort.
func (s *Source) readGPUs() []GPUStat {
	s.nvmlOnce.Do(func() {
		s.nvmlOK = nvml.Init() == nvml.SUCCESS
		if s.nvmlOK {
			logger.Debug().Msg("NVML initialized for GPU metrics")
		}
	})

	if s.nvmlOK {
		if gpus := readNVMLGPUs(); len(gpus) > 0 {
			return gpus
		}
	}

	if gpus := readNvidiaSMI(); len(gpus) > 0 {
		return gpus
	}

	return readRocmSMI()
}

func (s *Source) closeNVML() {
	if s.nvmlOK {
		nvml.Shutdown()
		s.nvmlOK = false
	}
}

func readNVMLGPUs() []GPUStat {
	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil
	}

	gpus := make([]GPUStat, 0, count)
	for i := 0; i < count; i++ {
		device, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			continue
		}

		gpu := GPUStat{Vendor: "NVIDIA", Index: i}
		if name, ret := device.GetName(); ret == nvml.SUCCESS {
			gpu.Name = name
		}
		if util, ret := device.GetUtilizationRates(); ret == nvml.SUCCESS {
			gpu.Utilization = float64(util.Gpu)
			gpu.MemUtilization = float64(util.Memory)
		}
		if memory, ret := device.GetMemoryInfo(); ret == nvml.SUCCESS {
			gpu.MemTotalMB = float64(memory.Total) / bytesPerMiB
			gpu.MemUsedMB = float64(memory.Used) / bytesPerMiB
		}
		if temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
			gpu.Temperature = float64(temp)
		}
		if power, ret := device.GetPowerUsage(); ret == nvml.SUCCESS {
			gpu.PowerWatts = float64(power) / 1000 // milliwatts
		}

		gpus = append(gpus, gpu)
	}

	return gpus
}

func readNvidiaSMI() []GPUStat {
	if _, err := lookPath("nvidia-smi"); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gpuQueryTimeout)
	defer cancel()

	output, err := runCommand(ctx, "nvidia-smi", nvidiaSMIQuery, "--format=csv,noheader,nounits")
	if err != nil {
		logger.Debug().Err(err).Msg("nvidia-smi query failed")
		return nil
	}

	var gpus []GPUStat
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		fields := strings.Split(line, ",")
		if len(fields) < 8 {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		index, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}

		gpus = append(gpus, GPUStat{
			Vendor:         "NVIDIA",
			Name:           fields[0],
			Index:          index,
			Utilization:    parseFloat(fields[2]),
			MemUtilization: parseFloat(fields[3]),
			MemTotalMB:     parseFloat(fields[4]),
			MemUsedMB:      parseFloat(fields[5]),
			Temperature:    parseFloat(fields[6]),
			PowerWatts:     parseFloat(fields[7]),
		})
	}

	return gpus
}

func readRocmSMI() []GPUStat {
	command := ""
	for _, candidate := range []string{"rocm-smi", "amd-smi"} {
		if _, err := lookPath(candidate); err == nil {
			command = candidate
			break
		}
	}
	if command == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gpuQueryTimeout)
	defer cancel()

	output, err := runCommand(ctx, command, "--showtemp", "--showuse", "--showmeminfo", "vram", "--json")
	if err != nil {
		logger.Debug().Err(err).Msg("rocm-smi query failed")
		return nil
	}

	var cards map[string]map[string]any
	if err := json.Unmarshal(output, &cards); err != nil {
		logger.Debug().Err(err).Msg("rocm-smi output not parseable")
		return nil
	}

	var gpus []GPUStat
	for key, info := range cards {
		if !strings.HasPrefix(key, "card") {
			continue
		}

		index, err := strconv.Atoi(strings.TrimPrefix(key, "card"))
		if err != nil {
			index = len(gpus)
		}

		name := stringField(info, "Card series")
		if name == "" {
			name = key
		}

		gpus = append(gpus, GPUStat{
			Vendor:         "AMD",
			Name:           name,
			Index:          index,
			Utilization:    floatField(info, "GPU use (%)"),
			MemUtilization: floatField(info, "GPU memory use (%)"),
			MemTotalMB:     floatField(info, "VRAM Total Memory (B)") / bytesPerMiB,
			MemUsedMB:      floatField(info, "VRAM Used Memory (B)") / bytesPerMiB,
			Temperature:    floatField(info, "Temperature (Sensor edge) (C)"),
			PowerWatts:     floatField(info, "Average Graphics Package Power (W)"),
		})
	}

	return gpus
}

func parseFloat(value string) float64 {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}

	return parsed
}

func stringField(info map[string]any, key string) string {
	if value, ok := info[key].(string); ok {
		return value
	}

	return ""
}

func floatField(info map[string]any, key string) float64 {
	switch value := info[key].(type) {
	case float64:
		return value
	case string:
		return parseFloat(value)
	default:
		return 0
	}
}
