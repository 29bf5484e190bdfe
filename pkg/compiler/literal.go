package compiler

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/parser"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// literalElement builds the constant of a literal token.
func (b *builder) literalElement(tok *parser.Node) (*literal, error) {
	image := tok.Image
	switch tok.Token {
	case parser.TokenInteger, parser.TokenHex, parser.TokenReal:
		return b.number(tok.Token, image, false)
	case parser.TokenTrue:
		return &literal{value: true, typ: types.Bool}, nil
	case parser.TokenFalse:
		return &literal{value: false, typ: types.Bool}, nil
	case parser.TokenNull:
		return &literal{value: nil, typ: types.NullType}, nil
	case parser.TokenString:
		s, err := parser.Unescape(image[1 : len(image)-1])
		if err != nil {
			return nil, types.Errorf(types.ReasonInvalidFormat, "string literal %s: %v", image, err).WithToken(image)
		}
		return &literal{value: s, typ: types.String}, nil
	case parser.TokenChar:
		s, err := parser.Unescape(image[1 : len(image)-1])
		if err != nil || utf8.RuneCountInString(s) != 1 {
			return nil, types.Errorf(types.ReasonInvalidFormat, "char literal %s must hold exactly one character", image).WithToken(image)
		}
		r, _ := utf8.DecodeRuneInString(s)
		return &literal{value: types.Char(r), typ: types.CharType}, nil
	case parser.TokenDateTime:
		t, err := parser.ParseDateTime(image[1:len(image)-1], b.opts.Parser.DateTimeFormat)
		if err != nil {
			return nil, types.Errorf(types.ReasonInvalidFormat,
				"datetime literal %s does not match format %q", image, b.opts.Parser.DateTimeFormat).WithToken(image).WithCause(err)
		}
		return &literal{value: t, typ: types.DateTime}, nil
	case parser.TokenTimeSpan:
		d, err := parser.ParseTimeSpan(image[2 : len(image)-1])
		if err != nil {
			return nil, types.Errorf(types.ReasonInvalidFormat, "timespan literal %s: %v", image, err).WithToken(image).WithCause(err)
		}
		return &literal{value: d, typ: types.TimeSpan}, nil
	}
	return nil, types.Errorf(types.ReasonSyntaxError, "unexpected token %s", tok.Token).WithToken(image)
}

// number parses a numeric literal. A negated literal is parsed with its
// sign so the smallest value of each integer type can be written.
func (b *builder) number(tt parser.TokenType, image string, negated bool) (*literal, error) {
	var (
		value any
		err   error
	)
	if tt == parser.TokenReal {
		value, err = b.real(image, negated)
	} else {
		value, err = b.integer(tt == parser.TokenHex, image, negated)
	}
	if err != nil {
		if te, ok := err.(*types.Error); ok {
			return nil, te.WithToken(image)
		}
		return nil, types.Errorf(types.ReasonInvalidFormat, "numeric literal %s: %v", image, err).WithToken(image)
	}
	return &literal{value: value, typ: typeOfValue(value), image: image, tok: tt}, nil
}

func (b *builder) integer(hex bool, image string, negated bool) (any, error) {
	digits := strings.TrimRight(image, "uUlL")
	suffix := strings.ToLower(image[len(digits):])
	base := 10
	if hex {
		digits, base = digits[2:], 16
	}

	u, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return nil, overflowLiteral(image, negated)
		}
		return nil, err
	}

	if b.opts.IntegersAsDoubles {
		f := float64(u)
		if negated {
			f = -f
		}
		return f, nil
	}

	if negated {
		switch {
		case suffix == "" && u <= 1<<31:
			return int32(-int64(u)), nil
		case (suffix == "" || suffix == "l") && u <= 1<<63:
			return int64(-u), nil
		}
		return nil, overflowLiteral(image, negated)
	}

	switch suffix {
	case "":
		switch {
		case u <= math.MaxInt32:
			return int32(u), nil
		case u <= math.MaxUint32:
			return uint32(u), nil
		case u <= math.MaxInt64:
			return int64(u), nil
		}
		return u, nil
	case "u":
		if u <= math.MaxUint32 {
			return uint32(u), nil
		}
		return u, nil
	case "l":
		if u <= math.MaxInt64 {
			return int64(u), nil
		}
		return u, nil
	}
	return u, nil
}

func (b *builder) real(image string, negated bool) (any, error) {
	body := image
	suffix := byte(0)
	if last := image[len(image)-1]; strings.IndexByte("dDfFmM", last) >= 0 {
		body, suffix = image[:len(image)-1], last|0x20
	}
	if sep := b.opts.Parser.DecimalSeparator; sep != '.' {
		body = strings.Replace(body, string(sep), ".", 1)
	}
	if negated {
		body = "-" + body
	}

	target := b.opts.RealLiteralType
	switch suffix {
	case 'd':
		target = types.Double
	case 'f':
		target = types.Single
	case 'm':
		target = types.Decimal
	}

	switch target {
	case types.Single:
		f, err := strconv.ParseFloat(body, 32)
		if errors.Is(err, strconv.ErrRange) && !math.IsInf(f, 0) {
			err = nil
		}
		if err != nil {
			return nil, realError(image, negated, err)
		}
		return float32(f), nil
	case types.Decimal:
		d, err := decimal.NewFromString(body)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	f, err := strconv.ParseFloat(body, 64)
	if errors.Is(err, strconv.ErrRange) && !math.IsInf(f, 0) {
		err = nil
	}
	if err != nil {
		return nil, realError(image, negated, err)
	}
	return f, nil
}

// realError reports values too large for the type; underflow to zero is
// accepted.
func realError(image string, negated bool, err error) error {
	if errors.Is(err, strconv.ErrRange) {
		return overflowLiteral(image, negated)
	}
	return err
}

func overflowLiteral(image string, negated bool) *types.Error {
	if negated {
		image = "-" + image
	}
	return types.Errorf(types.ReasonConstantOverflow, "numeric literal %s does not fit any numeric type", image)
}
