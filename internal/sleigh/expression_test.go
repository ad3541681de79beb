package sleigh

import "testing"

func TestTokenFieldSignExtendsNegativeValue(t *testing.T) {
	// A 4-bit signed field reading 0b1111 (-1) out of a single byte 0xFF.
	tf := &TokenField{
		BigEndian: true,
		SignBit:   true,
		BitStart:  4,
		BitEnd:    7,
		ByteStart: 0,
		ByteEnd:   0,
	}
	state := &DisasmState{memory: []byte{0xff, 0, 0, 0}}
	v, err := tf.evaluate(state, 0)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if v != -1 {
		t.Fatalf("got %d, want -1", v)
	}
}

func TestTokenFieldUnsignedDoesNotSignExtend(t *testing.T) {
	tf := &TokenField{
		BigEndian: true,
		SignBit:   false,
		BitStart:  4,
		BitEnd:    7,
		ByteStart: 0,
		ByteEnd:   0,
	}
	state := &DisasmState{memory: []byte{0xff, 0, 0, 0}}
	v, err := tf.evaluate(state, 0)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if v != 0xf {
		t.Fatalf("got %d, want 15", v)
	}
}

func TestContextFieldSignExtendsByNegation(t *testing.T) {
	// ContextField sign-extends via simple negation rather than two's
	// complement masking, an inconsistency inherited from the reference
	// implementation and preserved here since nothing calls it out as wrong.
	cf := &ContextField{
		SignBit:   true,
		BitStart:  4,
		BitEnd:    7,
		ByteStart: 0,
		ByteEnd:   0,
	}
	state := &DisasmState{context: []uint32{0xff000000}}
	v := cf.evaluate(state)
	if v != -0xf {
		t.Fatalf("got %d, want -15", v)
	}
}

func TestArithmeticExpressionEvaluatesLeftToRight(t *testing.T) {
	e := &Expression{
		Kind: ExprSub,
		Left: &Expression{Kind: ExprConstant, Constant: 10},
		Right: &Expression{Kind: ExprConstant, Constant: 3},
	}
	v, err := e.Evaluate(evalContext{state: &DisasmState{}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if v != 7 {
		t.Fatalf("got %d, want 7", v)
	}
}

func TestOperandValueRejectsCrossFrameReference(t *testing.T) {
	ov := &OperandValue{Index: 0, SymID: 1, CtorIdx: 0}
	frame := &DisasmOperandStackItem{SubsymID: 2, CtorIdx: 0}
	_, err := ov.evaluate(evalContext{topStack: frame})
	if !IsKind(err, Unsupported) {
		t.Fatalf("got %v, want Unsupported", err)
	}
}
