package drcbe

import "github.com/xyproto/drcarm64/uml"

// opcodeTable is the static opcode-to-generator dispatch table, indexed
// directly by uml.Opcode rather than switched on, so an unrecognized
// opcode index is a single bounds check away from a generator-internal
// error instead of a silent no-op.
var opcodeTable = buildOpcodeTable()

func buildOpcodeTable() []func(*Backend, *uml.Instruction) {
	t := make([]func(*Backend, *uml.Instruction), maxOpcode+1)

	t[uml.OpMOV] = (*Backend).movOp
	t[uml.OpSET] = (*Backend).setOp

	t[uml.OpADD] = (*Backend).addOp
	t[uml.OpADDC] = (*Backend).addcOp
	t[uml.OpSUB] = (*Backend).subOp
	t[uml.OpSUBB] = (*Backend).subbOp
	t[uml.OpCMP] = (*Backend).cmpOp
	t[uml.OpMULU] = (*Backend).muluOp
	t[uml.OpMULS] = (*Backend).mulsOp
	t[uml.OpDIVU] = (*Backend).divuOp
	t[uml.OpDIVS] = (*Backend).divsOp

	t[uml.OpAND] = (*Backend).andOp
	t[uml.OpOR] = (*Backend).orOp
	t[uml.OpXOR] = (*Backend).xorOp
	t[uml.OpNOT] = (*Backend).notOp
	t[uml.OpSHL] = (*Backend).shlOp
	t[uml.OpSHR] = (*Backend).shrOp
	t[uml.OpSAR] = (*Backend).sarOp
	t[uml.OpROL] = (*Backend).rolOp
	t[uml.OpROR] = (*Backend).rorOp
	t[uml.OpROLC] = (*Backend).rolcOp
	t[uml.OpRORC] = (*Backend).rorcOp
	t[uml.OpROLAND] = (*Backend).rolandOp
	t[uml.OpROLINS] = (*Backend).rolinsOp
	t[uml.OpBSWAP] = (*Backend).bswapOp
	t[uml.OpLZCNT] = (*Backend).lzcntOp
	t[uml.OpTZCNT] = (*Backend).tzcntOp
	t[uml.OpSEXT] = (*Backend).sextOp

	t[uml.OpFADD] = (*Backend).faddOp
	t[uml.OpFSUB] = (*Backend).fsubOp
	t[uml.OpFMUL] = (*Backend).fmulOp
	t[uml.OpFDIV] = (*Backend).fdivOp
	t[uml.OpFNEG] = (*Backend).fnegOp
	t[uml.OpFABS] = (*Backend).fabsOp
	t[uml.OpFSQRT] = (*Backend).fsqrtOp
	t[uml.OpFRECIP] = (*Backend).frecipOp
	t[uml.OpFRSQRT] = (*Backend).frsqrtOp
	t[uml.OpFCMP] = (*Backend).fcmpOp
	t[uml.OpFCOPYI] = (*Backend).fcopyiOp
	t[uml.OpICOPYF] = (*Backend).icopyfOp
	t[uml.OpFRNDS] = (*Backend).frndsOp
	t[uml.OpFTOINT] = (*Backend).ftointOp

	t[uml.OpREAD] = (*Backend).readOp
	t[uml.OpREADM] = (*Backend).readOp
	t[uml.OpWRITE] = (*Backend).writeOp
	t[uml.OpWRITEM] = (*Backend).writeOp

	t[uml.OpCALLC] = (*Backend).callcOp

	t[uml.OpSAVE] = (*Backend).saveOp
	t[uml.OpRESTORE] = (*Backend).restoreOp
	t[uml.OpGETFLGS] = (*Backend).getflgsOp
	t[uml.OpSETFLGS] = (*Backend).setflgsOp
	t[uml.OpMAPVAR] = (*Backend).mapvarOp
	t[uml.OpRECOVER] = (*Backend).recoverOp

	t[uml.OpNOP] = (*Backend).nopOp
	t[uml.OpBREAK] = (*Backend).breakOp
	t[uml.OpDEBUG] = (*Backend).debugOp
	t[uml.OpEXIT] = (*Backend).exitOp
	t[uml.OpHASH] = (*Backend).hashOp
	t[uml.OpHASHJMP] = (*Backend).hashjmpOp
	t[uml.OpJMP] = (*Backend).jmpOp
	t[uml.OpEXH] = (*Backend).exhOp
	t[uml.OpCALLH] = (*Backend).callhOp
	t[uml.OpRET] = (*Backend).retOp
	t[uml.OpHANDLE] = (*Backend).handleOp
	t[uml.OpLABEL] = (*Backend).labelOp

	t[uml.OpCOMMENT] = (*Backend).commentOp
	t[uml.OpCARRY] = (*Backend).carryOp
	t[uml.OpGETFMOD] = (*Backend).getfmodOp
	t[uml.OpSETFMOD] = (*Backend).setfmodOp
	t[uml.OpGETEXP] = (*Backend).getexpOp
	t[uml.OpFLOAD] = (*Backend).floadOp
	t[uml.OpFSTORE] = (*Backend).fstoreOp
	t[uml.OpFREAD] = (*Backend).freadOp
	t[uml.OpFWRITE] = (*Backend).fwriteOp

	return t
}

// maxOpcode bounds the dispatch table; update alongside uml.Opcode.
const maxOpcode = int(uml.OpFWRITE)

// dispatch asserts the instruction's opcode index is in range and calls
// its generator.
func (be *Backend) dispatch(in *uml.Instruction) {
	if in.Op < 0 || int(in.Op) > maxOpcode || opcodeTable[in.Op] == nil {
		panicGen(internalError("dispatch: opcode index %d out of range", in.Op))
	}
	opcodeTable[in.Op](be, in)
}
