package extraction

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStrategy is returned when a strategy name is not registered
var ErrUnknownStrategy = errors.New("unknown extraction strategy")

// VendorHeuristic selects how the vendor line is picked from the top of a receipt
type VendorHeuristic int

const (
	// VendorStrict skips header noise (dates, amounts, weekdays, receipt/invoice
	// labels) and strips punctuation from the chosen line.
	VendorStrict VendorHeuristic = iota
	// VendorSimple takes the first line that does not start with a digit and
	// contains neither a dollar sign nor a date.
	VendorSimple
)

func (v VendorHeuristic) String() string {
	switch v {
	case VendorStrict:
		return "strict"
	case VendorSimple:
		return "simple"
	default:
		return fmt.Sprintf("VendorHeuristic(%d)", int(v))
	}
}

// Weights are the confidence points added for each field that was found
type Weights struct {
	Vendor        int
	Total         int
	TotalFallback int
	Date          int
	Tax           int
	Tip           int
	Payment       int
}

// Strategy configures the extractor
type Strategy struct {
	Name              string
	BaseConfidence    int
	ConfidenceCeiling int
	Vendor            VendorHeuristic
	// PaymentOrder is the order payment keywords are checked in; the first
	// method whose keywords appear anywhere in the text wins.
	PaymentOrder []PaymentMethod
	Weights      Weights
}

// CloudStrategy is tuned for full-page text from a cloud vision API.
// It is the default.
var CloudStrategy = Strategy{
	Name:              "cloud",
	BaseConfidence:    0,
	ConfidenceCeiling: 95,
	Vendor:            VendorStrict,
	PaymentOrder:      []PaymentMethod{PaymentCard, PaymentCash, PaymentDigital},
	Weights: Weights{
		Vendor:        25,
		Total:         30,
		TotalFallback: 5,
		Date:          20,
		Tax:           10,
		Tip:           5,
		Payment:       10,
	},
}

// DeviceStrategy is tuned for text recognized on the capturing device.
// It starts from a high base score because the device only reports text it
// already considers legible.
var DeviceStrategy = Strategy{
	Name:              "device",
	BaseConfidence:    75,
	ConfidenceCeiling: 100,
	Vendor:            VendorSimple,
	PaymentOrder:      []PaymentMethod{PaymentCash, PaymentCard, PaymentDigital},
	Weights: Weights{
		Vendor:        10,
		Total:         15,
		TotalFallback: 5,
		Date:          10,
		Tax:           5,
		Tip:           5,
		Payment:       5,
	},
}

// DefaultStrategy is used when no strategy is named
var DefaultStrategy = CloudStrategy

// Strategies returns the registered strategies
func Strategies() []Strategy {
	return []Strategy{CloudStrategy, DeviceStrategy}
}

// StrategyByName looks up a registered strategy. An empty name selects the default.
func StrategyByName(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultStrategy, nil
	}
	for _, s := range Strategies() {
		if s.Name == name {
			return s, nil
		}
	}
	return Strategy{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}
