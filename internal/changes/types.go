package changes

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// LimitUpTag is the type tag the source uses for stocks sealed at limit-up.
const LimitUpTag = "封涨停板"

const (
	SessionMorning   = "上午"
	SessionAfternoon = "下午"
)

// Event is one reported stock movement, keyed exactly as the source emits it.
type Event struct {
	Sector  string    `json:"板块名称"`
	Time    string    `json:"时间"`
	Name    string    `json:"名称"`
	Change  Magnitude `json:"四舍五入取整"`
	Type    string    `json:"类型"`
	Session string    `json:"上下午"`
}

// Value is the change rounded half away from zero; missing values are 0.
func (e Event) Value() int64 {
	if !e.Change.Valid {
		return 0
	}
	return e.Change.Decimal.Round(0).IntPart()
}

func (e Event) IsLimitUp() bool {
	return e.Type == LimitUpTag
}

// Magnitude accepts integers, integral floats ("5.0") and null. It encodes
// as a bare JSON number, unlike decimal.Decimal which quotes by default.
type Magnitude struct {
	decimal.NullDecimal
}

func NewMagnitude(n int64) Magnitude {
	return Magnitude{decimal.NewNullDecimal(decimal.NewFromInt(n))}
}

func (m Magnitude) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return []byte(m.Decimal.String()), nil
}

var (
	ErrTransport = errors.New("changes source unreachable")
	ErrStatus    = errors.New("changes source returned non-success status")
	ErrMalformed = errors.New("malformed changes payload")
)

type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("changes source returned status %d", e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}
