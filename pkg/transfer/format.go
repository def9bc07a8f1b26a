package transfer

import "github.com/shopspring/decimal"

// AssetDecimals is the fixed display precision for bridged assets,
// matching the 18-decimal native unit convention.
const AssetDecimals = 18

// FormatUnits renders a raw native-unit integer string as a human-readable
// decimal. It is a pure display transform; the result never round-trips back
// into stored state. Unparsable input renders as "0".
func FormatUnits(raw string) string {
	if raw == "" {
		return "0"
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "0"
	}
	return d.Shift(-AssetDecimals).String()
}
