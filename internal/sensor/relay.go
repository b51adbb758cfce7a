package sensor

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/stianeikeland/go-rpio/v4"
)

func (r *RpioRelay) GetRelayState() (bool, error) {
	slog.Debug(">>GetRelayState", "name", r.device.Name, "address", r.device.Address)
	defer slog.Debug("<<GetRelayState")

	r.mu.Lock()
	defer r.mu.Unlock()

	pin, err := r.openPin()
	if err != nil {
		return false, err
	}

	defer rpio.Close()

	var pinOnValue rpio.State = rpio.High
	if r.device.NormallyOn {
		pinOnValue = rpio.Low
	}

	return pin.Read() == pinOnValue, nil
}

func (r *RpioRelay) SetRelayState(on bool) error {
	slog.Info(">>SetRelayState", "name", r.device.Name, "on", on)
	defer slog.Info("<<SetRelayState", "name", r.device.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	pin, err := r.openPin()
	if err != nil {
		return err
	}

	defer rpio.Close()

	pin.Output()

	// a normally on relay is energized while the pin is low
	if on != r.device.NormallyOn {
		pin.High()
	} else {
		pin.Low()
	}

	return nil
}

func (r *RpioRelay) openPin() (rpio.Pin, error) {
	pinNumber, err := strconv.Atoi(r.device.Address)
	if err != nil {
		return 0, fmt.Errorf("relay address %q: %w", r.device.Address, err)
	}

	if err := rpio.Open(); err != nil {
		return 0, fmt.Errorf("%w: %w", thermostat.ErrHardwareFault, err)
	}

	return rpio.Pin(pinNumber), nil
}
