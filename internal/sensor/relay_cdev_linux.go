//go:build linux

package sensor

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// CdevRelay drives the relay through the GPIO character device. The line stays
// requested as an output for the lifetime of the process.
type CdevRelay struct {
	device DeviceConfig
	mu     sync.Mutex
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
}

func NewCdevRelay(device DeviceConfig) (*CdevRelay, error) {
	offset, err := strconv.Atoi(device.Address)
	if err != nil {
		return nil, fmt.Errorf("relay address %q: %w", device.Address, err)
	}

	chipName := device.Chip
	if chipName == "" {
		chipName = DEFAULT_GPIO_CHIP
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// start de-energized
	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(pinValue(device, false)))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", offset, err)
	}

	return &CdevRelay{
		device: device,
		chip:   chip,
		line:   line,
	}, nil
}

func (r *CdevRelay) GetRelayState() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read relay pin: %w", err)
	}

	return v == pinValue(r.device, true), nil
}

func (r *CdevRelay) SetRelayState(on bool) error {
	slog.Info(">>SetRelayState", "name", r.device.Name, "on", on)
	defer slog.Info("<<SetRelayState", "name", r.device.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.line.SetValue(pinValue(r.device, on)); err != nil {
		return fmt.Errorf("write relay pin: %w", err)
	}

	return nil
}

// Close releases the line as an input so the relay is not held energized.
func (r *CdevRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if err := r.line.Reconfigure(gpiocdev.AsInput); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure relay pin: %w", err))
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close relay pin: %w", err))
	}
	if err := r.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func pinValue(device DeviceConfig, on bool) int {
	if on != device.NormallyOn {
		return 1
	}
	return 0
}
