// Package common holds helpers shared by the orchestrion commands.
package common

import "github.com/GiGurra/boa/pkg/boa"

// DefaultParamEnricher derives flag names and shorthands from param fields.
func DefaultParamEnricher() boa.ParamEnricher {
	return boa.ParamEnricherCombine(
		boa.ParamEnricherBool,
		boa.ParamEnricherName,
		boa.ParamEnricherShort,
	)
}
