package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSha512Half(t *testing.T) {
	tt := []struct {
		description string
		input       [][]byte
		expected    string
	}{
		{
			description: "single input",
			input:       [][]byte{[]byte("fakeRandomString")},
			expected:    "bb3eca8985e1484fa6a28c4b30fb0042a2cc5df3ec8dc37b5f3d126ddfd3ca14",
		},
		{
			description: "split input hashes like the concatenation",
			input:       [][]byte{{0x54, 0x58, 0x4e, 0x00}, []byte("pay"), []byte("load")},
			expected:    "15dc93d8ac68fe11f131a5e9f282a40b6f8119f2de166a0d49a57c986532cfc8",
		},
	}

	for _, tc := range tt {
		t.Run(tc.description, func(t *testing.T) {
			got := Sha512Half(tc.input...)
			require.Equal(t, tc.expected, hex.EncodeToString(got[:]))
		})
	}
}
