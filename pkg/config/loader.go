package config

import (
	"fmt"
	"reflect"

	"github.com/caarlos0/env/v10"
	"github.com/shopspring/decimal"
)

// Load fills cfg from the process environment using `env` tags. Fields of
// type decimal.Decimal are parsed exactly, so money settings never pass
// through float64.
func Load(cfg any) error {
	return parse(cfg, env.Options{})
}

// LoadFrom is Load over an explicit variable set instead of os.Environ.
func LoadFrom(cfg any, environ map[string]string) error {
	return parse(cfg, env.Options{Environment: environ})
}

func parse(cfg any, opts env.Options) error {
	opts.FuncMap = map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(decimal.Decimal{}): func(v string) (any, error) {
			return decimal.NewFromString(v)
		},
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
