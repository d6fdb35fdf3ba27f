package indicators

import (
	"context"
	"strconv"

	"github.com/VisionKernel/Centerspoke/internal/logging"
	"github.com/VisionKernel/Centerspoke/internal/table"
)

// Stage appends indicator columns to a table that has a numeric price column.
// Zero-valued fields take the defaults shown in Defaults.
type Stage struct {
	PriceColumn  string
	SMAWindow    int
	ReturnWindow int
	RSIWindow    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	ZScore       bool
}

// Defaults returns the stage with the standard windows: SMA 200, Sharpe 20,
// RSI 14 and MACD 12/26/9 on the "price" column.
func Defaults() Stage {
	return Stage{
		PriceColumn:  "price",
		SMAWindow:    200,
		ReturnWindow: 20,
		RSIWindow:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
	}
}

func (Stage) Name() string { return "indicators" }

func (s Stage) withDefaults() Stage {
	d := Defaults()
	if s.PriceColumn == "" {
		s.PriceColumn = d.PriceColumn
	}
	if s.SMAWindow <= 0 {
		s.SMAWindow = d.SMAWindow
	}
	if s.ReturnWindow <= 0 {
		s.ReturnWindow = d.ReturnWindow
	}
	if s.RSIWindow <= 0 {
		s.RSIWindow = d.RSIWindow
	}
	if s.MACDFast <= 0 {
		s.MACDFast = d.MACDFast
	}
	if s.MACDSlow <= 0 {
		s.MACDSlow = d.MACDSlow
	}
	if s.MACDSignal <= 0 {
		s.MACDSignal = d.MACDSignal
	}
	return s
}

// Apply derives the indicator columns. A missing price column leaves the
// table unchanged; a non-numeric one is skipped with a warning.
func (s Stage) Apply(ctx context.Context, in table.Table) (table.Table, error) {
	s = s.withDefaults()
	log := logging.FromContext(ctx)
	out := in.Clone()

	name := table.NormalizeName(s.PriceColumn)
	price, ok := out.Column(name)
	if !ok {
		log.Debug("indicators: no price column", "column", name)
		return out, nil
	}
	series, ok := FromColumn(price)
	if !ok {
		log.Warn("indicators: price column is not numeric; skipping", "column", name, "type", price.Type.String())
		return out, nil
	}

	macd, signal := MACD(series, s.MACDFast, s.MACDSlow, s.MACDSignal)
	derived := []namedSeries{
		{"sma_" + strconv.Itoa(s.SMAWindow), SMA(series, s.SMAWindow)},
		{"sharpe_" + strconv.Itoa(s.ReturnWindow), RollingSharpe(series, s.ReturnWindow)},
		{"rsi_" + strconv.Itoa(s.RSIWindow), RSI(series, s.RSIWindow)},
		{"macd", macd},
		{"macd_signal", signal},
	}
	if s.ZScore {
		derived = append(derived, namedSeries{name + "_z_score", ZScore(series)})
	}

	for _, d := range derived {
		out = setColumn(out, ToColumn(d.name, d.s))
	}
	log.Info("indicators: derived columns", "price", name, "rows", out.Rows(), "added", len(derived))
	return out, nil
}

type namedSeries struct {
	name string
	s    Series
}

// FromColumn reads an Integer or Float column as a Series.
func FromColumn(c table.Column) (Series, bool) {
	n := c.Len()
	s := newSeries(n)
	switch c.Type {
	case table.Float:
		copy(s.Values, c.Floats)
	case table.Integer:
		for i, v := range c.Ints {
			s.Values[i] = float64(v)
		}
	default:
		return Series{}, false
	}
	for i := range s.Valid {
		s.Valid[i] = !c.IsNull(i)
	}
	return s, true
}

// ToColumn turns a Series into a Float column; invalid entries become nulls.
func ToColumn(name string, s Series) table.Column {
	c := table.Column{
		Name:   name,
		Type:   table.Float,
		Floats: make([]float64, s.Len()),
		Null:   make([]bool, s.Len()),
	}
	for i := range s.Values {
		if s.Valid[i] {
			c.Floats[i] = s.Values[i]
		} else {
			c.Null[i] = true
		}
	}
	return c
}

// setColumn replaces a same-named column or appends a new one.
func setColumn(t table.Table, c table.Column) table.Table {
	for i := range t.Columns {
		if t.Columns[i].Name == c.Name {
			t.Columns[i] = c
			return t
		}
	}
	t.Columns = append(t.Columns, c)
	return t
}
