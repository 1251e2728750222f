package browser

import (
	"math/rand"
	"time"

	"github.com/go-rod/rod"
)

// Pause sleeps for a random duration in [min, max]. Automation that acts
// at machine speed trips behavioral bot checks on login forms.
func Pause(min, max time.Duration) {
	if max <= min {
		time.Sleep(min)
		return
	}
	time.Sleep(min + time.Duration(rand.Int63n(int64(max-min))))
}

// TypeHumanly focuses the element and inserts the text in small bursts
// with irregular gaps, the way a person types.
func TypeHumanly(el *rod.Element, text string) error {
	if err := el.Focus(); err != nil {
		return err
	}
	Pause(80*time.Millisecond, 220*time.Millisecond)

	runes := []rune(text)
	for i := 0; i < len(runes); {
		n := 1 + rand.Intn(3)
		if i+n > len(runes) {
			n = len(runes) - i
		}
		if err := el.Input(string(runes[i : i+n])); err != nil {
			return err
		}
		i += n
		Pause(30*time.Millisecond, 140*time.Millisecond)
	}
	return nil
}
