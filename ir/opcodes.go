package ir

// Opcode is a concrete instruction opcode. Encoding variants (lit8/lit16) and value-kind
// variants (iget-byte, iget-char, ...) are distinct opcodes; Info maps each one onto a
// logical Op plus its Width and Kind so rules never have to name variants.
type Opcode uint8

// Moves, returns and constants.
const (
	NOP Opcode = iota
	MOVE
	MOVE_WIDE
	MOVE_OBJECT
	MOVE_RESULT
	MOVE_RESULT_WIDE
	MOVE_RESULT_OBJECT
	RETURN_VOID
	RETURN
	RETURN_WIDE
	RETURN_OBJECT
	CONST
	CONST_16
	CONST_WIDE
	NEW_INSTANCE
)

// Unary and three-register arithmetic.
const (
	NEG_INT Opcode = iota + 20
	NOT_INT
	ADD_INT
	SUB_INT
	MUL_INT
	DIV_INT
	REM_INT
)

// Literal arithmetic, 16-bit and 8-bit literal encodings.
const (
	ADD_INT_LIT16 Opcode = iota + 40
	RSUB_INT
	MUL_INT_LIT16
	DIV_INT_LIT16
	REM_INT_LIT16
	AND_INT_LIT16
	OR_INT_LIT16
	XOR_INT_LIT16
	ADD_INT_LIT8
	RSUB_INT_LIT8
	MUL_INT_LIT8
	DIV_INT_LIT8
	REM_INT_LIT8
	AND_INT_LIT8
	OR_INT_LIT8
	XOR_INT_LIT8
	SHL_INT_LIT8
	SHR_INT_LIT8
	USHR_INT_LIT8
)

// Instance field access.
const (
	IGET Opcode = iota + 70
	IGET_WIDE
	IGET_OBJECT
	IGET_BOOLEAN
	IGET_BYTE
	IGET_CHAR
	IGET_SHORT
	IPUT
	IPUT_WIDE
	IPUT_OBJECT
	IPUT_BOOLEAN
	IPUT_BYTE
	IPUT_CHAR
	IPUT_SHORT
)

// Static field access.
const (
	SGET Opcode = iota + 90
	SGET_WIDE
	SGET_OBJECT
	SGET_BOOLEAN
	SGET_BYTE
	SGET_CHAR
	SGET_SHORT
	SPUT
	SPUT_WIDE
	SPUT_OBJECT
	SPUT_BOOLEAN
	SPUT_BYTE
	SPUT_CHAR
	SPUT_SHORT
)

// Invocations.
const (
	INVOKE_VIRTUAL Opcode = iota + 110
	INVOKE_STATIC
)

// Internal pseudo opcodes. They have no encoding of their own; they carry the implicit
// result of the preceding instruction into a named register.
const (
	IOPCODE_MOVE_RESULT_PSEUDO Opcode = iota + 250
	IOPCODE_MOVE_RESULT_PSEUDO_WIDE
	IOPCODE_MOVE_RESULT_PSEUDO_OBJECT
)

// Op is the logical operation of an opcode, independent of encoding width and value kind.
type Op uint8

const (
	OpInvalid Op = iota
	OpNop
	OpMove
	OpMoveResult
	OpReturnVoid
	OpReturn
	OpConst
	OpNewInstance
	OpNegInt
	OpNotInt
	OpAddInt
	OpSubInt
	OpMulInt
	OpDivInt
	OpRemInt
	OpAddIntLit
	OpRsubIntLit
	OpMulIntLit
	OpDivIntLit
	OpRemIntLit
	OpAndIntLit
	OpOrIntLit
	OpXorIntLit
	OpShlIntLit
	OpShrIntLit
	OpUshrIntLit
	OpIget
	OpIput
	OpSget
	OpSput
	OpInvoke
	OpMoveResultPseudo
)

// Width is the encoding width of a literal operand.
type Width uint8

const (
	WidthNone Width = iota
	Width8
	Width16
	Width32
	Width64
)

// Kind is the value kind moved by a typed opcode or held by a field.
type Kind uint8

const (
	KindNone Kind = iota
	KindInt
	KindByte
	KindChar
	KindBoolean
	KindShort
	KindWide
	KindObject
)

var kindNames = [...]string{
	KindNone:    "none",
	KindInt:     "int",
	KindByte:    "byte",
	KindChar:    "char",
	KindBoolean: "boolean",
	KindShort:   "short",
	KindWide:    "wide",
	KindObject:  "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// RefKind says which kind of symbolic reference an opcode carries.
type RefKind uint8

const (
	RefNone RefKind = iota
	RefField
	RefMethod
	RefType
)

// Info is the static description of an opcode.
type Info struct {
	Name   string
	Op     Op
	Width  Width
	Kind   Kind
	Ref    RefKind
	Srcs   int  // register operands; -1 means variadic (invokes)
	Dest   bool // the first register operand is a destination
	Pseudo bool // result is delivered by a following move-result-pseudo
}

var opcodeInfo = map[Opcode]Info{
	NOP:                {Name: "nop", Op: OpNop},
	MOVE:               {Name: "move", Op: OpMove, Kind: KindInt, Dest: true, Srcs: 1},
	MOVE_WIDE:          {Name: "move-wide", Op: OpMove, Kind: KindWide, Dest: true, Srcs: 1},
	MOVE_OBJECT:        {Name: "move-object", Op: OpMove, Kind: KindObject, Dest: true, Srcs: 1},
	MOVE_RESULT:        {Name: "move-result", Op: OpMoveResult, Kind: KindInt, Dest: true},
	MOVE_RESULT_WIDE:   {Name: "move-result-wide", Op: OpMoveResult, Kind: KindWide, Dest: true},
	MOVE_RESULT_OBJECT: {Name: "move-result-object", Op: OpMoveResult, Kind: KindObject, Dest: true},
	RETURN_VOID:        {Name: "return-void", Op: OpReturnVoid},
	RETURN:             {Name: "return", Op: OpReturn, Kind: KindInt, Srcs: 1},
	RETURN_WIDE:        {Name: "return-wide", Op: OpReturn, Kind: KindWide, Srcs: 1},
	RETURN_OBJECT:      {Name: "return-object", Op: OpReturn, Kind: KindObject, Srcs: 1},
	CONST:              {Name: "const", Op: OpConst, Width: Width32, Kind: KindInt, Dest: true},
	CONST_16:           {Name: "const/16", Op: OpConst, Width: Width16, Kind: KindInt, Dest: true},
	CONST_WIDE:         {Name: "const-wide", Op: OpConst, Width: Width64, Kind: KindWide, Dest: true},
	NEW_INSTANCE:       {Name: "new-instance", Op: OpNewInstance, Kind: KindObject, Ref: RefType, Pseudo: true},

	NEG_INT: {Name: "neg-int", Op: OpNegInt, Kind: KindInt, Dest: true, Srcs: 1},
	NOT_INT: {Name: "not-int", Op: OpNotInt, Kind: KindInt, Dest: true, Srcs: 1},
	ADD_INT: {Name: "add-int", Op: OpAddInt, Kind: KindInt, Dest: true, Srcs: 2},
	SUB_INT: {Name: "sub-int", Op: OpSubInt, Kind: KindInt, Dest: true, Srcs: 2},
	MUL_INT: {Name: "mul-int", Op: OpMulInt, Kind: KindInt, Dest: true, Srcs: 2},
	DIV_INT: {Name: "div-int", Op: OpDivInt, Kind: KindInt, Srcs: 2, Pseudo: true},
	REM_INT: {Name: "rem-int", Op: OpRemInt, Kind: KindInt, Srcs: 2, Pseudo: true},

	ADD_INT_LIT16: {Name: "add-int/lit16", Op: OpAddIntLit, Width: Width16, Kind: KindInt, Dest: true, Srcs: 1},
	RSUB_INT:      {Name: "rsub-int", Op: OpRsubIntLit, Width: Width16, Kind: KindInt, Dest: true, Srcs: 1},
	MUL_INT_LIT16: {Name: "mul-int/lit16", Op: OpMulIntLit, Width: Width16, Kind: KindInt, Dest: true, Srcs: 1},
	DIV_INT_LIT16: {Name: "div-int/lit16", Op: OpDivIntLit, Width: Width16, Kind: KindInt, Srcs: 1, Pseudo: true},
	REM_INT_LIT16: {Name: "rem-int/lit16", Op: OpRemIntLit, Width: Width16, Kind: KindInt, Srcs: 1, Pseudo: true},
	AND_INT_LIT16: {Name: "and-int/lit16", Op: OpAndIntLit, Width: Width16, Kind: KindInt, Dest: true, Srcs: 1},
	OR_INT_LIT16:  {Name: "or-int/lit16", Op: OpOrIntLit, Width: Width16, Kind: KindInt, Dest: true, Srcs: 1},
	XOR_INT_LIT16: {Name: "xor-int/lit16", Op: OpXorIntLit, Width: Width16, Kind: KindInt, Dest: true, Srcs: 1},
	ADD_INT_LIT8:  {Name: "add-int/lit8", Op: OpAddIntLit, Width: Width8, Kind: KindInt, Dest: true, Srcs: 1},
	RSUB_INT_LIT8: {Name: "rsub-int/lit8", Op: OpRsubIntLit, Width: Width8, Kind: KindInt, Dest: true, Srcs: 1},
	MUL_INT_LIT8:  {Name: "mul-int/lit8", Op: OpMulIntLit, Width: Width8, Kind: KindInt, Dest: true, Srcs: 1},
	DIV_INT_LIT8:  {Name: "div-int/lit8", Op: OpDivIntLit, Width: Width8, Kind: KindInt, Srcs: 1, Pseudo: true},
	REM_INT_LIT8:  {Name: "rem-int/lit8", Op: OpRemIntLit, Width: Width8, Kind: KindInt, Srcs: 1, Pseudo: true},
	AND_INT_LIT8:  {Name: "and-int/lit8", Op: OpAndIntLit, Width: Width8, Kind: KindInt, Dest: true, Srcs: 1},
	OR_INT_LIT8:   {Name: "or-int/lit8", Op: OpOrIntLit, Width: Width8, Kind: KindInt, Dest: true, Srcs: 1},
	XOR_INT_LIT8:  {Name: "xor-int/lit8", Op: OpXorIntLit, Width: Width8, Kind: KindInt, Dest: true, Srcs: 1},
	SHL_INT_LIT8:  {Name: "shl-int/lit8", Op: OpShlIntLit, Width: Width8, Kind: KindInt, Dest: true, Srcs: 1},
	SHR_INT_LIT8:  {Name: "shr-int/lit8", Op: OpShrIntLit, Width: Width8, Kind: KindInt, Dest: true, Srcs: 1},
	USHR_INT_LIT8: {Name: "ushr-int/lit8", Op: OpUshrIntLit, Width: Width8, Kind: KindInt, Dest: true, Srcs: 1},

	IGET:         {Name: "iget", Op: OpIget, Kind: KindInt, Ref: RefField, Srcs: 1, Pseudo: true},
	IGET_WIDE:    {Name: "iget-wide", Op: OpIget, Kind: KindWide, Ref: RefField, Srcs: 1, Pseudo: true},
	IGET_OBJECT:  {Name: "iget-object", Op: OpIget, Kind: KindObject, Ref: RefField, Srcs: 1, Pseudo: true},
	IGET_BOOLEAN: {Name: "iget-boolean", Op: OpIget, Kind: KindBoolean, Ref: RefField, Srcs: 1, Pseudo: true},
	IGET_BYTE:    {Name: "iget-byte", Op: OpIget, Kind: KindByte, Ref: RefField, Srcs: 1, Pseudo: true},
	IGET_CHAR:    {Name: "iget-char", Op: OpIget, Kind: KindChar, Ref: RefField, Srcs: 1, Pseudo: true},
	IGET_SHORT:   {Name: "iget-short", Op: OpIget, Kind: KindShort, Ref: RefField, Srcs: 1, Pseudo: true},
	IPUT:         {Name: "iput", Op: OpIput, Kind: KindInt, Ref: RefField, Srcs: 2},
	IPUT_WIDE:    {Name: "iput-wide", Op: OpIput, Kind: KindWide, Ref: RefField, Srcs: 2},
	IPUT_OBJECT:  {Name: "iput-object", Op: OpIput, Kind: KindObject, Ref: RefField, Srcs: 2},
	IPUT_BOOLEAN: {Name: "iput-boolean", Op: OpIput, Kind: KindBoolean, Ref: RefField, Srcs: 2},
	IPUT_BYTE:    {Name: "iput-byte", Op: OpIput, Kind: KindByte, Ref: RefField, Srcs: 2},
	IPUT_CHAR:    {Name: "iput-char", Op: OpIput, Kind: KindChar, Ref: RefField, Srcs: 2},
	IPUT_SHORT:   {Name: "iput-short", Op: OpIput, Kind: KindShort, Ref: RefField, Srcs: 2},

	SGET:         {Name: "sget", Op: OpSget, Kind: KindInt, Ref: RefField, Pseudo: true},
	SGET_WIDE:    {Name: "sget-wide", Op: OpSget, Kind: KindWide, Ref: RefField, Pseudo: true},
	SGET_OBJECT:  {Name: "sget-object", Op: OpSget, Kind: KindObject, Ref: RefField, Pseudo: true},
	SGET_BOOLEAN: {Name: "sget-boolean", Op: OpSget, Kind: KindBoolean, Ref: RefField, Pseudo: true},
	SGET_BYTE:    {Name: "sget-byte", Op: OpSget, Kind: KindByte, Ref: RefField, Pseudo: true},
	SGET_CHAR:    {Name: "sget-char", Op: OpSget, Kind: KindChar, Ref: RefField, Pseudo: true},
	SGET_SHORT:   {Name: "sget-short", Op: OpSget, Kind: KindShort, Ref: RefField, Pseudo: true},
	SPUT:         {Name: "sput", Op: OpSput, Kind: KindInt, Ref: RefField, Srcs: 1},
	SPUT_WIDE:    {Name: "sput-wide", Op: OpSput, Kind: KindWide, Ref: RefField, Srcs: 1},
	SPUT_OBJECT:  {Name: "sput-object", Op: OpSput, Kind: KindObject, Ref: RefField, Srcs: 1},
	SPUT_BOOLEAN: {Name: "sput-boolean", Op: OpSput, Kind: KindBoolean, Ref: RefField, Srcs: 1},
	SPUT_BYTE:    {Name: "sput-byte", Op: OpSput, Kind: KindByte, Ref: RefField, Srcs: 1},
	SPUT_CHAR:    {Name: "sput-char", Op: OpSput, Kind: KindChar, Ref: RefField, Srcs: 1},
	SPUT_SHORT:   {Name: "sput-short", Op: OpSput, Kind: KindShort, Ref: RefField, Srcs: 1},

	INVOKE_VIRTUAL: {Name: "invoke-virtual", Op: OpInvoke, Ref: RefMethod, Srcs: -1},
	INVOKE_STATIC:  {Name: "invoke-static", Op: OpInvoke, Ref: RefMethod, Srcs: -1},

	IOPCODE_MOVE_RESULT_PSEUDO:        {Name: "move-result-pseudo", Op: OpMoveResultPseudo, Kind: KindInt, Dest: true},
	IOPCODE_MOVE_RESULT_PSEUDO_WIDE:   {Name: "move-result-pseudo-wide", Op: OpMoveResultPseudo, Kind: KindWide, Dest: true},
	IOPCODE_MOVE_RESULT_PSEUDO_OBJECT: {Name: "move-result-pseudo-object", Op: OpMoveResultPseudo, Kind: KindObject, Dest: true},
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfo))
	for op, info := range opcodeInfo {
		m[info.Name] = op
	}
	return m
}()

// Valid reports whether op is part of the opcode enumeration.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfo[op]
	return ok
}

// Info returns the static description of op. Unknown opcodes yield OpInvalid.
func (op Opcode) Info() Info {
	info, ok := opcodeInfo[op]
	if !ok {
		return Info{Name: "UNKNOWN", Op: OpInvalid}
	}
	return info
}

func (op Opcode) String() string { return op.Info().Name }

// Logical returns the logical operation of op.
func (op Opcode) Logical() Op { return op.Info().Op }

// Kind returns the value kind moved by op.
func (op Opcode) Kind() Kind { return op.Info().Kind }

// HasLiteral reports whether op carries a literal operand.
func (op Opcode) HasLiteral() bool { return op.Info().Width != WidthNone }

// HasMoveResultPseudo reports whether op must be followed by a move-result-pseudo.
func (op Opcode) HasMoveResultPseudo() bool { return op.Info().Pseudo }

// IsMoveResultPseudo reports whether op is one of the move-result-pseudo opcodes.
func (op Opcode) IsMoveResultPseudo() bool { return op.Info().Op == OpMoveResultPseudo }

// LookupOpcode resolves a mnemonic such as "add-int/lit8".
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// PseudoFor returns the move-result-pseudo opcode that must follow op.
func PseudoFor(op Opcode) (Opcode, bool) {
	if !op.HasMoveResultPseudo() {
		return 0, false
	}
	switch op.Kind() {
	case KindWide:
		return IOPCODE_MOVE_RESULT_PSEUDO_WIDE, true
	case KindObject:
		return IOPCODE_MOVE_RESULT_PSEUDO_OBJECT, true
	default:
		return IOPCODE_MOVE_RESULT_PSEUDO, true
	}
}

// MoveFor returns the register-to-register move opcode for values of kind k.
func MoveFor(k Kind) Opcode {
	switch k {
	case KindWide:
		return MOVE_WIDE
	case KindObject:
		return MOVE_OBJECT
	default:
		return MOVE
	}
}
