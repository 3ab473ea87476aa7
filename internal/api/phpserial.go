package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/updater/internal/domain"
)

// Older servers send sections and banners as PHP serialized arrays,
// e.g. a:2:{s:11:"description";s:4:"Desc";s:9:"changelog";s:3:"Log";}
// Only what those payloads use is supported: arrays, stdClass objects,
// strings, ints, floats, bools and null.

type phpEntry struct {
	key   string
	value any
}

// phpArray keeps entries in serialized order.
type phpArray []phpEntry

type phpDecoder struct {
	data string
	pos  int
}

// isSerialized reports whether s looks like a serialized array or object.
func isSerialized(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) > 4 && (strings.HasPrefix(s, "a:") || strings.HasPrefix(s, "O:")) && strings.HasSuffix(s, "}")
}

// unserializeMapping decodes a serialized array into an ordered mapping.
// Nested arrays are rejected: a section or banner value is always text.
func unserializeMapping(s string) (domain.OrderedMap, error) {
	d := &phpDecoder{data: strings.TrimSpace(s)}

	v, err := d.value()
	if err != nil {
		return domain.OrderedMap{}, err
	}
	if d.pos != len(d.data) {
		return domain.OrderedMap{}, d.errorf("trailing data")
	}

	arr, ok := v.(phpArray)
	if !ok {
		return domain.OrderedMap{}, fmt.Errorf("serialized value is %T, not an array", v)
	}

	var m domain.OrderedMap
	for _, e := range arr {
		text, err := scalarText(e.value)
		if err != nil {
			return domain.OrderedMap{}, fmt.Errorf("entry %q: %w", e.key, err)
		}
		m.Set(e.key, text)
	}
	return m, nil
}

func scalarText(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		if x {
			return "1", nil
		}
		return "", nil
	default:
		return "", fmt.Errorf("nested %T value", v)
	}
}

func (d *phpDecoder) errorf(format string, args ...any) error {
	return fmt.Errorf("unserialize at offset %d: %s", d.pos, fmt.Sprintf(format, args...))
}

func (d *phpDecoder) expect(lit string) error {
	if !strings.HasPrefix(d.data[d.pos:], lit) {
		return d.errorf("expected %q", lit)
	}
	d.pos += len(lit)
	return nil
}

// until returns the text up to sep and moves past it.
func (d *phpDecoder) until(sep byte) (string, error) {
	i := strings.IndexByte(d.data[d.pos:], sep)
	if i < 0 {
		return "", d.errorf("missing %q", sep)
	}
	out := d.data[d.pos : d.pos+i]
	d.pos += i + 1
	return out, nil
}

// count reads a non negative length terminated by sep.
func (d *phpDecoder) count(sep byte) (int, error) {
	raw, err := d.until(sep)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > len(d.data) {
		return 0, d.errorf("bad length %q", raw)
	}
	return n, nil
}

func (d *phpDecoder) value() (any, error) {
	if d.pos >= len(d.data) {
		return nil, d.errorf("unexpected end of input")
	}

	switch d.data[d.pos] {
	case 'N':
		return nil, d.expect("N;")

	case 'b':
		if err := d.expect("b:"); err != nil {
			return nil, err
		}
		raw, err := d.until(';')
		if err != nil {
			return nil, err
		}
		switch raw {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return nil, d.errorf("bad bool %q", raw)

	case 'i':
		if err := d.expect("i:"); err != nil {
			return nil, err
		}
		raw, err := d.until(';')
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, d.errorf("bad int %q", raw)
		}
		return n, nil

	case 'd':
		if err := d.expect("d:"); err != nil {
			return nil, err
		}
		raw, err := d.until(';')
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, d.errorf("bad float %q", raw)
		}
		return f, nil

	case 's':
		if err := d.expect("s:"); err != nil {
			return nil, err
		}
		n, err := d.count(':')
		if err != nil {
			return nil, err
		}
		if err := d.expect(`"`); err != nil {
			return nil, err
		}
		if d.pos+n > len(d.data) {
			return nil, d.errorf("string length %d overruns input", n)
		}
		s := d.data[d.pos : d.pos+n]
		d.pos += n
		return s, d.expect(`";`)

	case 'a':
		if err := d.expect("a:"); err != nil {
			return nil, err
		}
		n, err := d.count(':')
		if err != nil {
			return nil, err
		}
		return d.entries(n)

	case 'O':
		if err := d.expect("O:"); err != nil {
			return nil, err
		}
		n, err := d.count(':')
		if err != nil {
			return nil, err
		}
		if err := d.expect(`"`); err != nil {
			return nil, err
		}
		if d.pos+n > len(d.data) {
			return nil, d.errorf("class name overruns input")
		}
		d.pos += n
		if err := d.expect(`":`); err != nil {
			return nil, err
		}
		props, err := d.count(':')
		if err != nil {
			return nil, err
		}
		return d.entries(props)
	}

	return nil, d.errorf("unsupported type %q", d.data[d.pos])
}

// entries reads "{" n key/value pairs "}".
func (d *phpDecoder) entries(n int) (phpArray, error) {
	if err := d.expect("{"); err != nil {
		return nil, err
	}

	arr := make(phpArray, 0, n)
	for i := 0; i < n; i++ {
		k, err := d.value()
		if err != nil {
			return nil, err
		}
		var key string
		switch x := k.(type) {
		case string:
			key = x
		case int64:
			key = strconv.FormatInt(x, 10)
		default:
			return nil, d.errorf("bad key type %T", k)
		}

		v, err := d.value()
		if err != nil {
			return nil, err
		}
		arr = append(arr, phpEntry{key: key, value: v})
	}

	if err := d.expect("}"); err != nil {
		return nil, err
	}
	return arr, nil
}
