package db

import (
	"database/sql"
	"fmt"
	"math/big"

	"github.com/russross/meddler"
)

// ratDecimalDigits is the fixed number of fractional digits used when storing
// rational amounts. 18 digits covers wei-denominated ETH amounts exactly;
// USDC amounts (6 fractional digits) are a subset.
const ratDecimalDigits = 18

func init() {
	meddler.Register("rat", RatMeddler{})
}

// RatMeddler converts between *big.Rat and a fixed-precision decimal string.
// Amounts are stored as text so aggregation stays exact and reproducible
// across platforms.
type RatMeddler struct{}

func (r RatMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(sql.NullString), nil
}

func (r RatMeddler) PostRead(fieldAddr, scanTarget interface{}) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	ptr, ok := fieldAddr.(**big.Rat)
	if !ok {
		return fmt.Errorf("expected **big.Rat, got %T", fieldAddr)
	}

	if !ns.Valid || ns.String == "" {
		*ptr = new(big.Rat)
		return nil
	}

	rat, ok := new(big.Rat).SetString(ns.String)
	if !ok {
		return fmt.Errorf("invalid decimal value %q", ns.String)
	}
	*ptr = rat

	return nil
}

func (r RatMeddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	rat, ok := field.(*big.Rat)
	if !ok {
		return nil, fmt.Errorf("expected *big.Rat, got %T", field)
	}

	if rat == nil {
		rat = new(big.Rat)
	}

	return rat.FloatString(ratDecimalDigits), nil
}
