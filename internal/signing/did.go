package signing

// base58 implements the Bitcoin/IPFS base58btc alphabet used by multibase's
// "z" prefix. No pack dependency covers multibase or did:key, so this is a
// small, self-contained implementation of a well-defined public encoding.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ed25519MulticodecPrefix is the two-byte varint-encoded multicodec value
// for ed25519-pub (0xed, 0x01), prepended before base58-encoding per the
// did:key spec.
var ed25519MulticodecPrefix = []byte{0xed, 0x01}

func base58Encode(data []byte) string {
	zeros := 0
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	input := make([]byte, len(data))
	copy(input, data)

	var digits []byte
	for _, b := range input {
		carry := int(b)
		for i := 0; i < len(digits); i++ {
			carry += int(digits[i]) << 8
			digits[i] = byte(carry % 58)
			carry /= 58
		}
		for carry > 0 {
			digits = append(digits, byte(carry%58))
			carry /= 58
		}
	}

	out := make([]byte, zeros)
	for i := range out {
		out[i] = base58Alphabet[0]
	}
	for i := len(digits) - 1; i >= 0; i-- {
		out = append(out, base58Alphabet[digits[i]])
	}
	return string(out)
}

// DeriveDID derives a did:key identifier for an Ed25519 public key using
// the multibase base58btc ("z") encoding, per §4.4's signing contract.
func DeriveDID(pub []byte) string {
	buf := make([]byte, 0, len(ed25519MulticodecPrefix)+len(pub))
	buf = append(buf, ed25519MulticodecPrefix...)
	buf = append(buf, pub...)
	return "did:key:z" + base58Encode(buf)
}
