package crypto

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
)

// DefaultParametersLiteral returns a BGV parameter set with N=8192 slots and
// a batching-friendly plaintext modulus of 65537.
func DefaultParametersLiteral() bgv.ParametersLiteral {
	return bgv.ParametersLiteral{
		LogN:             13,
		LogQ:             []int{54, 54, 54},
		LogP:             []int{55},
		PlaintextModulus: 65537,
	}
}

// ParametersConfig is the serializable form of a BGV parameter set.
type ParametersConfig struct {
	LogN             int    `yaml:"log_n"`
	LogQ             []int  `yaml:"log_q"`
	LogP             []int  `yaml:"log_p"`
	PlaintextModulus uint64 `yaml:"plaintext_modulus"`
}

// DefaultParametersConfig mirrors DefaultParametersLiteral.
func DefaultParametersConfig() ParametersConfig {
	lit := DefaultParametersLiteral()
	return ParametersConfig{
		LogN:             lit.LogN,
		LogQ:             lit.LogQ,
		LogP:             lit.LogP,
		PlaintextModulus: lit.PlaintextModulus,
	}
}

// Literal converts the config into a lattigo parameters literal.
func (c ParametersConfig) Literal() (bgv.ParametersLiteral, error) {
	if c.LogN < 1 {
		return bgv.ParametersLiteral{}, fmt.Errorf("log_n must be positive, got %d", c.LogN)
	}
	if len(c.LogQ) == 0 {
		return bgv.ParametersLiteral{}, fmt.Errorf("log_q cannot be empty")
	}
	if c.PlaintextModulus < 2 {
		return bgv.ParametersLiteral{}, fmt.Errorf("plaintext_modulus must be at least 2, got %d", c.PlaintextModulus)
	}

	return bgv.ParametersLiteral{
		LogN:             c.LogN,
		LogQ:             c.LogQ,
		LogP:             c.LogP,
		PlaintextModulus: c.PlaintextModulus,
	}, nil
}
