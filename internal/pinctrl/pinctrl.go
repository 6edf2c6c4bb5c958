package pinctrl

import (
	"fmt"
	"os/exec"
	"strings"
)

// SetPin applies one or more pinctrl set options to a GPIO pin.
// Example: SetPin(17, "op", "pn", "dh") drives pin 17 high as output.
func SetPin(pin int, opts ...string) error {
	args := []string{"set", fmt.Sprint(pin)}
	args = append(args, opts...)
	out, err := exec.Command("pinctrl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("pinctrl set failed: %s (output: %s)", err, string(out))
	}
	return nil
}

// ReadLevel reads the logic level of a pin using `pinctrl lev <pin>`.
func ReadLevel(pin int) (bool, error) {
	out, err := exec.Command("pinctrl", "lev", fmt.Sprint(pin)).Output()
	if err != nil {
		return false, fmt.Errorf("failed to read level for pin %d: %w", pin, err)
	}
	switch strings.TrimSpace(string(out)) {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected output from pinctrl lev: %q", strings.TrimSpace(string(out)))
	}
}
