package pipeline

import (
	"fmt"
	"strings"

	"github.com/VisionKernel/Centerspoke/internal/config"
	"github.com/VisionKernel/Centerspoke/internal/indicators"
	"github.com/VisionKernel/Centerspoke/internal/transformer"
	"github.com/VisionKernel/Centerspoke/internal/transformer/builtin"
)

// DefaultChain is used when a pipeline lists no transforms.
func DefaultChain() transformer.Chain {
	return transformer.Chain{builtin.Clean{}, builtin.Resolve{}}
}

// BuildChain turns the configured transforms into an ordered chain.
func BuildChain(ts []config.Transform) (transformer.Chain, error) {
	if len(ts) == 0 {
		return DefaultChain(), nil
	}
	chain := make(transformer.Chain, 0, len(ts))
	for i, t := range ts {
		o := t.Options
		switch strings.TrimSpace(t.Kind) {
		case "normalize":
			chain = append(chain, builtin.Normalize{})
		case "require":
			chain = append(chain, builtin.Require{Columns: o.StringSlice("columns")})
		case "clean":
			chain = append(chain, builtin.Clean{
				IndexColumn: o.String("index_column", ""),
				SkipFill:    o.Bool("skip_fill", false),
				SkipDedup:   o.Bool("skip_dedup", false),
			})
		case "infer":
			chain = append(chain, builtin.Resolve{
				DateHint:         o.String("date_hint", ""),
				CategoricalRatio: o.Float("categorical_ratio", 0),
			})
		case "indicators":
			chain = append(chain, indicators.Stage{
				PriceColumn:  o.String("price_column", ""),
				SMAWindow:    o.Int("sma_window", 0),
				ReturnWindow: o.Int("return_window", 0),
				RSIWindow:    o.Int("rsi_window", 0),
				MACDFast:     o.Int("macd_fast", 0),
				MACDSlow:     o.Int("macd_slow", 0),
				MACDSignal:   o.Int("macd_signal", 0),
				ZScore:       o.Bool("z_score", false),
			})
		default:
			return nil, fmt.Errorf("transform[%d]: unknown kind %q", i, t.Kind)
		}
	}
	return chain, nil
}
