package compunit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyq8709/dexhunter/internal/compconfig"
	"github.com/zyq8709/dexhunter/internal/compilelog"
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
)

func TestCompileOneReturnsCodeForSimpleMethod(t *testing.T) {
	// const/4 v0, #1 ; add-int v1, v0, v0 ; return v1
	insns := []uint16{
		uint16(insndecode.OpConst4) | 0<<8 | 1<<12,
		uint16(insndecode.OpAddInt) | 1<<8, 0<<8 | 0,
		uint16(insndecode.OpReturn) | 1<<8,
	}
	method := &mir.DecodedMethod{
		Insns:         insns,
		RegistersSize: 4,
		InsSize:       1,
		Ref:           mir.MethodRef{ClassName: "LFoo;", Name: "bar", Shorty: "I"},
	}

	d := NewDriver(compconfig.DefaultOptions(), compilelog.New(0))
	out, err := d.CompileOne(method)
	require.NoError(t, err)
	require.False(t, out.Skipped)
	require.NotEmpty(t, out.Code)
}

func TestCompileOneMarksSafepointsInPCToDexMap(t *testing.T) {
	// monitor-enter v0 ; return-void
	insns := []uint16{
		uint16(insndecode.OpMonitorEnter) | 0<<8,
		uint16(insndecode.OpReturnVoid),
	}
	method := &mir.DecodedMethod{
		Insns:         insns,
		RegistersSize: 4,
		Ref:           mir.MethodRef{ClassName: "LFoo;", Name: "sync", Shorty: "V"},
	}

	opts := compconfig.DefaultOptions()
	opts.TargetISA = compconfig.ISAX86_32
	d := NewDriver(opts, compilelog.New(0))
	out, err := d.CompileOne(method)
	require.NoError(t, err)
	require.False(t, out.Skipped)
	require.NotEmpty(t, out.PCToDex)
}

func TestCompileOneSkipsClinit(t *testing.T) {
	insns := []uint16{uint16(insndecode.OpReturnVoid)}
	method := &mir.DecodedMethod{
		Insns:       insns,
		AccessFlags: 0x10000, // ACC_CONSTRUCTOR
		Ref:         mir.MethodRef{ClassName: "LFoo;", Name: "<clinit>", Shorty: "V"},
	}

	d := NewDriver(compconfig.DefaultOptions(), compilelog.New(0))
	out, err := d.CompileOne(method)
	require.NoError(t, err)
	require.True(t, out.Skipped)
}

func TestCompileOneRecoversFromBadMethod(t *testing.T) {
	// Malformed: filled-new-array is a three-unit format (35c), so decoding
	// fails because the stream holds only its first unit.
	insns := []uint16{uint16(insndecode.OpFilledNewArray)}
	method := &mir.DecodedMethod{Insns: insns, RegistersSize: 4}

	d := NewDriver(compconfig.DefaultOptions(), compilelog.New(0))
	_, err := d.CompileOne(method)
	require.Error(t, err)
}
