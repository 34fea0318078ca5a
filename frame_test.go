package fifoq

import (
	"bytes"
	"errors"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
	}{
		{"empty", []byte{}},
		{"simple", []byte("gzip /var/tmp/big.log")},
		{"trailing whitespace kept", []byte("echo done   \n\t ")},
		{"binary", []byte{0x00, 0xff, 0x7f, 0x00}},
		{"exact capacity", bytes.Repeat([]byte("x"), DefaultFrameSize-frameHeaderSize)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := encodeFrame(tc.payload, DefaultFrameSize)
			if err != nil {
				t.Fatalf("encodeFrame: %v", err)
			}
			if len(frame) != DefaultFrameSize {
				t.Fatalf("frame length = %d, want %d", len(frame), DefaultFrameSize)
			}

			got, err := decodeFrame(frame)
			if err != nil {
				t.Fatalf("decodeFrame: %v", err)
			}
			if !bytes.Equal(got, tc.payload) {
				t.Errorf("payload = %q, want %q", got, tc.payload)
			}
		})
	}
}

func TestFrameOversize(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), DefaultFrameSize-frameHeaderSize+1)

	frame, err := encodeFrame(payload, DefaultFrameSize)
	if !errors.Is(err, ErrOversize) {
		t.Fatalf("err = %v, want ErrOversize", err)
	}
	if frame != nil {
		t.Errorf("oversize encode returned a frame")
	}
}

func TestFrameDecodeMalformed(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		if _, err := decodeFrame([]byte{0x00, 0x01}); !errors.Is(err, ErrDecode) {
			t.Errorf("err = %v, want ErrDecode", err)
		}
	})

	t.Run("length prefix exceeds frame", func(t *testing.T) {
		frame := make([]byte, 64)
		frame[3] = 61 // claims 61 payload bytes in a 64-byte frame
		if _, err := decodeFrame(frame); !errors.Is(err, ErrDecode) {
			t.Errorf("err = %v, want ErrDecode", err)
		}
	})
}

func TestPoisonPillRoundTrip(t *testing.T) {
	frame, err := encodeFrame([]byte(PoisonPill), DefaultFrameSize)
	if err != nil {
		t.Fatalf("encodeFrame: %v", err)
	}
	payload, err := decodeFrame(frame)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if !isPill(payload) {
		t.Errorf("decoded pill not recognized")
	}
	if isPill([]byte("stop")) {
		t.Errorf("ordinary payload recognized as pill")
	}
}
