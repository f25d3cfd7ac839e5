package render

import (
	"testing"

	"github.com/psoff-tools/p7dtrace/internal/bytesource"
	"github.com/psoff-tools/p7dtrace/internal/wire"
)

func TestRenderIntAndString(t *testing.T) {
	// int32 42 (widened to int64 on the wire) + ASCII "ok\0".
	buf := []byte{
		42, 0, 0, 0, 0, 0, 0, 0, // int64 slot holding 42
		'o', 'k', 0,
	}
	r := wire.NewReader(bytesource.NewMemorySource(buf), wire.Little)
	descriptors := []ArgDescriptor{{Type: ArgInt32, Size: 4}, {Type: ArgASCII, Size: 1}}

	got, consumed, err := Render(r, "%d %s", descriptors)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if got != "42 ok" {
		t.Fatalf("Render() = %q, want %q", got, "42 ok")
	}
	if consumed != 11 {
		t.Fatalf("consumed = %d, want 11", consumed)
	}
}

func TestRenderNoArgsPassesFormatUnchanged(t *testing.T) {
	r := wire.NewReader(bytesource.NewMemorySource(nil), wire.Little)
	got, consumed, err := Render(r, "psOff.app.id = CUSA12345", nil)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if got != "psOff.app.id = CUSA12345" {
		t.Fatalf("Render() = %q", got)
	}
	if consumed != 0 {
		t.Fatalf("consumed = %d, want 0", consumed)
	}
}

func TestFormatHexAndWidth(t *testing.T) {
	frame := []Value{{Tag: ArgInt32, Int: 255}}
	got := Format("%04x", frame)
	if got != "00ff" {
		t.Fatalf("Format(%%04x) = %q, want %q", got, "00ff")
	}
}

func TestFormatUnknownConversionEmitsLiteral(t *testing.T) {
	got := Format("%q", nil)
	if got != "%q" {
		t.Fatalf("Format(%%q) = %q, want literal %%q", got)
	}
}

func TestFormatPercentLiteral(t *testing.T) {
	got := Format("100%%", nil)
	if got != "100%" {
		t.Fatalf("Format = %q, want %q", got, "100%")
	}
}

func TestFormatWideChar(t *testing.T) {
	frame := []Value{{Tag: ArgChar16, Int: 'A'}}
	got := Format("%c", frame)
	if got != "A" {
		t.Fatalf("Format(%%c) = %q, want %q", got, "A")
	}
}
