package gbf

// NodeKind is the one-byte tag at the start of every GBF block, a closed set
// of ten node shapes.
type NodeKind uint8

const (
	LongKeyInterior  NodeKind = 0
	LongKeyVarRec    NodeKind = 1
	LongKeyFixedRec  NodeKind = 2
	VarKeyInterior   NodeKind = 3
	VarKeyRec        NodeKind = 4
	FixedKeyInterior NodeKind = 5
	FixedKeyVarRec   NodeKind = 6
	FixedKeyFixedRec NodeKind = 7
	ChainedBufIndex  NodeKind = 8
	ChainedBufData   NodeKind = 9
)

func (k NodeKind) String() string {
	switch k {
	case LongKeyInterior:
		return "long-key interior"
	case LongKeyVarRec:
		return "long-key var-record"
	case LongKeyFixedRec:
		return "long-key fixed-record"
	case VarKeyInterior:
		return "var-key interior"
	case VarKeyRec:
		return "var-key record"
	case FixedKeyInterior:
		return "fixed-key interior"
	case FixedKeyVarRec:
		return "fixed-key var-record"
	case FixedKeyFixedRec:
		return "fixed-key fixed-record"
	case ChainedBufIndex:
		return "chained-buffer index"
	case ChainedBufData:
		return "chained-buffer data"
	default:
		return "unknown"
	}
}
