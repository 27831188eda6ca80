package mip

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/structmine/structmine/pkg/errors"
)

// mpsSection identifies the MPS file section currently being parsed.
type mpsSection int

const (
	secNone mpsSection = iota
	secRows
	secColumns
	secRHS
	secRanges
	secBounds
)

// mpsRow accumulates one row before the RHS/RANGES sections are applied.
type mpsRow struct {
	sense    byte // 'N', 'L', 'G', 'E'
	rhs      float64
	rng      float64
	hasRange bool
}

// ReadMPSFile reads a model from an MPS file on disk.
func ReadMPSFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "model file %s", path)
		}
		return nil, err
	}
	defer f.Close()
	return ReadMPS(f, trimExt(path))
}

// ReadMPS parses MPS-format model data. Both fixed and free layouts are
// accepted: fields are whitespace-delimited, sections are recognized by a
// keyword in the first column. The objective row (first N row) is recorded by
// name but not stored as a constraint.
//
// Returns a MODEL_INCONSISTENT error for duplicate row or column names and an
// INVALID_FORMAT error for structural problems (unknown rows, bad numbers,
// missing sections).
func ReadMPS(r io.Reader, fallbackName string) (*Model, error) {
	model := NewModel(fallbackName)

	rows := make(map[string]*mpsRow)
	rowOrder := []string{}
	rowCoefs := make(map[string][]Coef)
	integerMode := false
	objRow := ""

	section := secNone
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "*") {
			continue
		}

		// Section headers start in column one.
		if line[0] != ' ' && line[0] != '\t' {
			fields := strings.Fields(line)
			switch fields[0] {
			case "NAME":
				if len(fields) > 1 {
					model.ModelName = fields[1]
				}
				section = secNone
			case "OBJSENSE", "OBJSENCE":
				section = secNone
			case "ROWS":
				section = secRows
			case "COLUMNS":
				section = secColumns
			case "RHS":
				section = secRHS
			case "RANGES":
				section = secRanges
			case "BOUNDS":
				section = secBounds
			case "ENDATA":
				section = secNone
			default:
				return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: unknown section %q", lineNo, fields[0])
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch section {
		case secRows:
			if len(fields) != 2 {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: malformed ROWS entry", lineNo)
			}
			sense := strings.ToUpper(fields[0])
			name := fields[1]
			if _, dup := rows[name]; dup {
				return nil, errors.New(errors.ErrCodeModelInconsistent, "duplicate row name: %s", name)
			}
			switch sense {
			case "N":
				if objRow == "" {
					objRow = name
				}
				rows[name] = &mpsRow{sense: 'N'}
			case "L", "G", "E":
				rows[name] = &mpsRow{sense: sense[0]}
				rowOrder = append(rowOrder, name)
			default:
				return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: unknown row sense %q", lineNo, sense)
			}

		case secColumns:
			if len(fields) >= 3 && fields[1] == "'MARKER'" {
				switch fields[2] {
				case "'INTORG'":
					integerMode = true
				case "'INTEND'":
					integerMode = false
				}
				continue
			}
			if len(fields) < 3 || len(fields)%2 == 0 {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: malformed COLUMNS entry", lineNo)
			}
			colName := fields[0]
			pos := model.VarByName(colName)
			if pos == None {
				vt := VarContinuous
				if integerMode {
					vt = VarInteger
				}
				var err error
				pos, err = model.AddVariable(NewVariable(colName, vt, 0, math.Inf(1)))
				if err != nil {
					return nil, err
				}
			}
			for k := 1; k+1 < len(fields); k += 2 {
				rowName := fields[k]
				val, err := strconv.ParseFloat(fields[k+1], 64)
				if err != nil {
					return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: bad coefficient %q", lineNo, fields[k+1])
				}
				if _, ok := rows[rowName]; !ok {
					return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: unknown row %q", lineNo, rowName)
				}
				if val == 0 || rows[rowName].sense == 'N' {
					continue
				}
				rowCoefs[rowName] = append(rowCoefs[rowName], Coef{Var: pos, Value: val})
			}

		case secRHS:
			if err := applyRowValues(rows, fields, lineNo, func(row *mpsRow, v float64) { row.rhs = v }); err != nil {
				return nil, err
			}

		case secRanges:
			if err := applyRowValues(rows, fields, lineNo, func(row *mpsRow, v float64) { row.rng, row.hasRange = v, true }); err != nil {
				return nil, err
			}

		case secBounds:
			if len(fields) < 3 {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: malformed BOUNDS entry", lineNo)
			}
			if err := applyBound(model, fields, lineNo); err != nil {
				return nil, err
			}

		default:
			return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: data outside any section", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(rowOrder) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "model has no constraint rows")
	}

	for _, name := range rowOrder {
		row := rows[name]
		lhs, rhs := rowBounds(row)
		c := NewConstraint(name, lhs, rhs)
		c.Coefs = rowCoefs[name]
		model.AddConstraint(c)
	}

	// Integer columns restricted to {0,1} behave as binaries for
	// classification purposes.
	for _, v := range model.Vars {
		if v.Type == VarInteger && v.LB == 0 && v.UB == 1 {
			v.Type = VarBinary
		}
	}

	return model, nil
}

// applyRowValues handles the shared "name row value [row value]" layout of the
// RHS and RANGES sections. The leading set name is optional in free MPS; a
// field pair is detected by whether the second field parses as a number.
func applyRowValues(rows map[string]*mpsRow, fields []string, lineNo int, apply func(*mpsRow, float64)) error {
	start := 1
	if len(fields) >= 2 {
		if _, ok := rows[fields[0]]; ok {
			if _, err := strconv.ParseFloat(fields[1], 64); err == nil {
				start = 0
			}
		}
	}
	if (len(fields)-start)%2 != 0 || len(fields)-start == 0 {
		return errors.New(errors.ErrCodeInvalidFormat, "line %d: malformed RHS/RANGES entry", lineNo)
	}
	for k := start; k+1 < len(fields); k += 2 {
		row, ok := rows[fields[k]]
		if !ok {
			return errors.New(errors.ErrCodeInvalidFormat, "line %d: unknown row %q", lineNo, fields[k])
		}
		val, err := strconv.ParseFloat(fields[k+1], 64)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidFormat, "line %d: bad value %q", lineNo, fields[k+1])
		}
		apply(row, val)
	}
	return nil
}

// rowBounds converts sense/rhs/range to activity bounds.
func rowBounds(row *mpsRow) (lhs, rhs float64) {
	switch row.sense {
	case 'L':
		lhs, rhs = math.Inf(-1), row.rhs
		if row.hasRange {
			lhs = row.rhs - math.Abs(row.rng)
		}
	case 'G':
		lhs, rhs = row.rhs, math.Inf(1)
		if row.hasRange {
			rhs = row.rhs + math.Abs(row.rng)
		}
	case 'E':
		lhs, rhs = row.rhs, row.rhs
		if row.hasRange {
			if row.rng >= 0 {
				rhs = row.rhs + row.rng
			} else {
				lhs = row.rhs + row.rng
			}
		}
	default:
		lhs, rhs = math.Inf(-1), math.Inf(1)
	}
	return lhs, rhs
}

// applyBound applies one BOUNDS entry to its column.
func applyBound(model *Model, fields []string, lineNo int) error {
	btype := strings.ToUpper(fields[0])
	// "BTYPE SETNAME COLNAME [VALUE]"; the set name is ignored.
	colField := 2
	if len(fields) == 3 {
		if _, err := strconv.ParseFloat(fields[2], 64); err == nil {
			colField = 1
		}
	}
	if colField >= len(fields) {
		return errors.New(errors.ErrCodeInvalidFormat, "line %d: malformed BOUNDS entry", lineNo)
	}
	pos := model.VarByName(fields[colField])
	if pos == None {
		return errors.New(errors.ErrCodeInvalidFormat, "line %d: unknown column %q", lineNo, fields[colField])
	}
	v := model.Var(pos)

	needsValue := btype == "UP" || btype == "LO" || btype == "FX" || btype == "UI" || btype == "LI"
	var val float64
	if needsValue {
		if colField+1 >= len(fields) {
			return errors.New(errors.ErrCodeInvalidFormat, "line %d: bound %s needs a value", lineNo, btype)
		}
		var err error
		val, err = strconv.ParseFloat(fields[colField+1], 64)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidFormat, "line %d: bad bound value %q", lineNo, fields[colField+1])
		}
	}

	switch btype {
	case "UP":
		v.UB = val
	case "LO":
		v.LB = val
	case "FX":
		v.LB, v.UB = val, val
	case "FR":
		v.LB, v.UB = math.Inf(-1), math.Inf(1)
	case "MI":
		v.LB = math.Inf(-1)
	case "PL":
		v.UB = math.Inf(1)
	case "BV":
		v.Type = VarBinary
		v.LB, v.UB = 0, 1
	case "UI":
		v.Type = VarInteger
		v.UB = val
	case "LI":
		v.Type = VarInteger
		v.LB = val
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "line %d: unknown bound type %q", lineNo, btype)
	}
	return nil
}

// trimExt strips the directory and extension from a path for use as a
// fallback model name.
func trimExt(path string) string {
	base := path
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
