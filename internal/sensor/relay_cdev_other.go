//go:build !linux

package sensor

import "errors"

// CdevRelay is only available on linux.
type CdevRelay struct{}

func NewCdevRelay(device DeviceConfig) (*CdevRelay, error) {
	return nil, errors.New("the GPIOCDEV relay driver requires linux")
}

func (r *CdevRelay) GetRelayState() (bool, error) {
	return false, errors.New("not supported")
}

func (r *CdevRelay) SetRelayState(on bool) error {
	return errors.New("not supported")
}

func (r *CdevRelay) Close() error {
	return nil
}
