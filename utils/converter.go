package utils

import (
	"errors"
	"math/big"
	"strings"
)

// INJ has 18 decimals, like ETH.
const injDecimals = 18

var weiPerINJ = new(big.Int).Exp(big.NewInt(10), big.NewInt(injDecimals), nil)

// WeiToINJ formats wei as a decimal INJ string without float rounding,
// trimming trailing zeros: 1500000000000000000 -> "1.5".
func WeiToINJ(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)
	whole, frac := new(big.Int).QuoRem(abs, weiPerINJ, new(big.Int))

	s := whole.String()
	if frac.Sign() != 0 {
		f := frac.String()
		f = strings.Repeat("0", injDecimals-len(f)) + f
		s += "." + strings.TrimRight(f, "0")
	}
	if neg {
		s = "-" + s
	}
	return s
}

// INJToWei parses a non-negative decimal INJ amount. More than 18 fractional
// digits is an error rather than a silent truncation.
func INJToWei(inj string) (*big.Int, error) {
	s := strings.TrimSpace(inj)
	if s == "" {
		return nil, errors.New("empty amount")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > injDecimals {
		return nil, errors.New("amount has more than 18 decimals")
	}
	digits := whole + frac + strings.Repeat("0", injDecimals-len(frac))
	for _, ch := range digits {
		if ch < '0' || ch > '9' {
			return nil, errors.New("amount must be a non-negative decimal")
		}
	}
	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, errors.New("invalid amount")
	}
	return wei, nil
}
