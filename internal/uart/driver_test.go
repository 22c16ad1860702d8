package uart

import (
	"errors"
	"testing"
	"time"

	"github.com/tarm/serial"
	gobug "go.bug.st/serial"
)

func TestBugstModeConversion(t *testing.T) {
	c := DefaultExternal("/dev/ttyS1", 9600)
	c.Parity, c.StopBits = ParityMark, Stop2
	m := bugstMode(c)
	if m.BaudRate != 9600 || m.DataBits != 8 || m.Parity != gobug.MarkParity || m.StopBits != gobug.TwoStopBits {
		t.Fatalf("unexpected mode %+v", m)
	}
	if bugstParity(ParityNone) != gobug.NoParity || bugstStopBits(Stop1Half) != gobug.OnePointFiveStopBits {
		t.Fatalf("unexpected defaults")
	}
}

func TestTarmConfigConversion(t *testing.T) {
	c := validHost()
	c.DataBits, c.Parity, c.StopBits, c.ReadTimeout = 7, ParityOdd, Stop2, 200*time.Millisecond
	tc := tarmConfig(c)
	if tc.Name != c.Device || tc.Baud != 115200 || tc.Size != 7 || tc.Parity != serial.ParityOdd || tc.StopBits != serial.Stop2 || tc.ReadTimeout != c.ReadTimeout {
		t.Fatalf("unexpected tarm config %+v", tc)
	}
}

func TestTarmOpenErrorFields(t *testing.T) {
	cases := []struct {
		err   error
		field string
	}{
		{serial.ErrBadSize, "data_bits"},
		{serial.ErrBadParity, "parity"},
		{serial.ErrBadStopBits, "stop_bits"},
		{errors.New("Unrecognized baud rate"), "baud"},
		{errors.New("open /dev/ttyX: no such file"), "device"},
	}
	for _, tc := range cases {
		var ce *ConfigurationError
		if err := tarmOpenError("host", tc.err); !errors.As(err, &ce) || ce.Field != tc.field {
			t.Fatalf("%v: expected field %s, got %v", tc.err, tc.field, err)
		}
	}
}

func TestBugstOpenErrorNonPortError(t *testing.T) {
	var ce *ConfigurationError
	if err := bugstOpenError("external", errors.New("boom")); !errors.As(err, &ce) || ce.Field != "device" || ce.Endpoint != "external" {
		t.Fatalf("unexpected mapping %v", err)
	}
}
