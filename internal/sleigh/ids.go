package sleigh

// ElementId, AttributeId, and AttributeKind are the closed tag enumerations
// the .sla tagged-element-tree format encodes tags against. The retrieved
// reference sources import these from a `consts` module that was not itself
// present in the corpus (only every *call site* referencing a variant by
// name was available) — see DESIGN.md for how the set below was
// reconstructed and why the numeric discriminants are sequential rather
// than Ghidra's real wire values.
type ElementId uint16

const (
	ElemNone ElementId = iota
	ElemSleigh
	ElemSourcefiles
	ElemSourcefile
	ElemSpaces
	ElemSpace
	ElemSpaceUnique
	ElemSpaceOther
	ElemSymbolTable
	ElemScope
	ElemOperandSym
	ElemVarnodeSym
	ElemUserop
	ElemValueSym
	ElemContextSym
	ElemEndSym
	ElemEpsilonSym
	ElemNameSym
	ElemNext2Sym
	ElemStartSym
	ElemSubtableSym
	ElemValuemapSym
	ElemVarlistSym
	ElemConstructor
	ElemDecision
	ElemOper
	ElemPrint
	ElemOpprint
	ElemConstructTpl
	ElemContextOp
	ElemNull
	ElemVarnodeTpl
	ElemHandleTpl
	ElemOpTpl
	ElemConstReal
	ElemConstHandle
	ElemConstStart
	ElemConstNext
	ElemConstNext2
	ElemConstCurspace
	ElemConstCurspaceSize
	ElemConstSpaceid
	ElemConstRelative
	ElemConstFlowref
	ElemConstFlowrefSize
	ElemConstFlowdest
	ElemConstFlowdestSize
	ElemTokenfield
	ElemContextfield
	ElemIntb
	ElemOperandExp
	ElemStartExp
	ElemEndExp
	ElemNext2Exp
	ElemPlusExp
	ElemSubExp
	ElemMultExp
	ElemDivExp
	ElemLshiftExp
	ElemRshiftExp
	ElemAndExp
	ElemOrExp
	ElemXorExp
	ElemMinusExp
	ElemNotExp
	ElemValuetab
	ElemVar
	ElemMaskWord
	ElemPatBlock
	ElemCombinePat
	ElemInstructPat
	ElemContextPat
	ElemPair
)

// AttributeId is the closed set of attribute tags an element can carry.
type AttributeId uint16

const (
	AttrNone AttributeId = iota
	AttrVersion
	AttrBigendian
	AttrAlign
	AttrUniqbase
	AttrMaxdelay
	AttrUniqmask
	AttrNumsections
	AttrName
	AttrIndex
	AttrDefaultspace
	AttrDelay
	AttrSize
	AttrPhysical
	AttrScopesize
	AttrSymbolsize
	AttrScope
	AttrId
	AttrSpace
	AttrOff
	AttrBase
	AttrMinlen
	AttrSubsym
	AttrCode
	AttrVal
	AttrS
	AttrPlus
	AttrParent
	AttrFirst
	AttrLength
	AttrSource
	AttrLine
	AttrLabels
	AttrSection
	AttrI
	AttrShift
	AttrMask
	AttrNumct
	AttrStartbit
	AttrEndbit
	AttrStartbyte
	AttrEndbyte
	AttrSignbit
	AttrTable
	AttrCt
	AttrPiece
	AttrNonzero
	AttrContext
	AttrVarnode
	AttrLow
	AttrHigh
	AttrFlow
)

// AttributeKind is the type tag encoded in an attribute's second header byte.
type AttributeKind uint8

const (
	AttrKindNone AttributeKind = iota
	AttrKindBoolean
	AttrKindPositiveSignedInteger
	AttrKindNegativeSignedInteger
	AttrKindUnsignedInteger
	AttrKindString
	AttrKindBasicAddressSpace
	AttrKindSpecialAddressSpace
)
