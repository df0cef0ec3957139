package path

// sequenceTypeByte concatenates child encodings; it is the only type
// whose body can itself contain unescaped delimiter bytes, so decoding
// it requires tracking nesting depth rather than scanning for the
// next 0x00 (spec.md §4.9).
const sequenceTypeByte = 0xa0

func registerSequence(r *Registry) {
	encode := func(v interface{}) ([]byte, bool) {
		items, ok := v.([]interface{})
		if !ok {
			return nil, false
		}
		var body []byte
		for _, item := range items {
			encoded, err := r.Encode(item)
			if err != nil {
				return nil, false
			}
			body = append(body, encoded...)
		}
		return body, true
	}
	// Sequences decode recursively through decodeElement rather than a
	// flat body decoder; this placeholder is never invoked.
	decode := func([]byte) (interface{}, error) {
		return nil, ErrNoMatchingDecoder
	}
	r.mustRegisterBuiltin(sequenceTypeByte, encode, decode)
}

// decodeElement reads one fully-delimited element (type byte, body,
// trailing 0x00) starting at pos and returns its value plus the
// position right after its closing delimiter.
func decodeElement(r *Registry, data []byte, pos int) (interface{}, int, error) {
	if pos >= len(data) {
		return nil, 0, ErrNoMatchingDecoder
	}
	typeByte := data[pos]

	r.mu.RLock()
	c, ok := r.byByte[typeByte]
	r.mu.RUnlock()
	if !ok {
		return nil, 0, ErrNoMatchingDecoder
	}

	if typeByte == sequenceTypeByte {
		i := pos + 1
		var items []interface{}
		for {
			if i >= len(data) {
				return nil, 0, ErrNoMatchingDecoder
			}
			if data[i] == delimiter {
				return items, i + 1, nil
			}
			v, next, err := decodeElement(r, data, i)
			if err != nil {
				return nil, 0, err
			}
			items = append(items, v)
			i = next
		}
	}

	i := pos + 1
	for i < len(data) && data[i] != delimiter {
		i++
	}
	if i >= len(data) {
		return nil, 0, ErrNoMatchingDecoder
	}
	v, err := c.decode(data[pos+1 : i])
	if err != nil {
		return nil, 0, err
	}
	return v, i + 1, nil
}
