package qr

import "fmt"

// RFC 9285 base45: two input bytes map to three alphabet characters, a
// trailing single byte maps to two. Values are emitted least significant
// character first.
const base45Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ $%*+-./:"

var base45Reverse = func() [256]int16 {
	var table [256]int16
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < len(base45Alphabet); i++ {
		table[base45Alphabet[i]] = int16(i)
	}
	return table
}()

func base45Encode(data []byte) string {
	out := make([]byte, 0, (len(data)+1)/2*3)

	for len(data) >= 2 {
		n := int(data[0])<<8 | int(data[1])
		out = append(out, base45Alphabet[n%45], base45Alphabet[n/45%45], base45Alphabet[n/2025])
		data = data[2:]
	}

	if len(data) == 1 {
		n := int(data[0])
		out = append(out, base45Alphabet[n%45], base45Alphabet[n/45])
	}

	return string(out)
}

func base45Decode(s string) ([]byte, error) {
	if len(s)%3 == 1 {
		return nil, fmt.Errorf("invalid base45 length %d", len(s))
	}

	out := make([]byte, 0, (len(s)+2)/3*2)

	for i := 0; i < len(s); i += 3 {
		group := s[i:min(i+3, len(s))]

		n := 0
		for j := len(group) - 1; j >= 0; j-- {
			v := base45Reverse[group[j]]
			if v < 0 {
				return nil, fmt.Errorf("invalid base45 character %q", group[j])
			}
			n = n*45 + int(v)
		}

		if len(group) == 3 {
			if n > 0xFFFF {
				return nil, fmt.Errorf("base45 triplet value %d exceeds two bytes", n)
			}
			out = append(out, byte(n>>8), byte(n))
		} else {
			if n > 0xFF {
				return nil, fmt.Errorf("base45 pair value %d exceeds one byte", n)
			}
			out = append(out, byte(n))
		}
	}

	return out, nil
}
