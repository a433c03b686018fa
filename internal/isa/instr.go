package isa

import (
	"fmt"
	"strings"

	"github.com/swarmlang/swarm/internal/ast"
)

// Instr is a single ISA instruction: a Tag plus the fixed operand shape
// its variant defines. Rather than one Go type per variant, a single
// struct carries every family's operands in typed fields, documented per
// constructor below; Dest's zero value (Location{Local, ""}) means "no
// bound result" since lowering never allocates an empty-named location.
//
// The arithmetic/logic/comparison family nests inside AssignEval
// (`AssignEval($l:b, Plus($l:a, $l:a))`); the container/call/object
// families that read a value are standalone Dest-producing instructions
// in their own right rather than further AssignEval payloads.
type Instr struct {
	Tag Tag

	// Dest is the bound result location, when Tag produces one.
	Dest Location

	// Src is AssignValue's source operand.
	Src Ref

	// EvalOp/Args are AssignEval's nested operation and its 1 (unary) or 2
	// (binary) operands.
	EvalOp Tag
	Args   []Ref

	// FuncName names the Function-affinity region a call/loop/resource
	// instruction targets (BeginFunction's own name, Call0/1's callee
	// when statically known, Curry's callee, While/Enumerate/With's body
	// region, PushCall0/1's target).
	FuncName string

	// Callee carries a FunctionRef operand when the call target is itself
	// a dynamic value rather than a statically-known region name (e.g.
	// calling through a parameter/free-var-bound function value).
	Callee Ref

	// Recv/Key/Value back the container-op family: MapInit/Get/Set,
	// EnumInit/Append/Get/Set/Concat/Length. Recv is the container
	// location, Key is the map key / enumerable index (nil for
	// EnumAppend/EnumInit/EnumLength), Value is the value being
	// written/appended (nil for the Get/Length forms).
	Recv  Ref
	Key   Ref
	Value Ref

	// ElemType is EnumInit/MapInit's declared inner type and
	// Enumerate/With's bound element/yield type operand.
	ElemType ast.Type

	// Source is Enumerate/With's source operand (the Enumerable/Map/
	// Resource being iterated or opened).
	Source Ref

	// Cond is While/CallIf0/CallElse0's boolean source location.
	Cond Ref

	// Loc is the single-operand target of ScopeOf/Lock/Unlock.
	Loc Location

	// Obj is ObjSet/ObjGet/ObjInstance/OTypeProp's object operand, and
	// ObjInit/OTypeInit's object-type operand's companion when a location
	// (rather than a bare type) is needed. Prop names the accessed
	// property for ObjSet/ObjGet/OTypeProp.
	Obj  Ref
	Prop string

	// ObjType carries ObjInit/OTypeInit/OTypeFinalize's Object-type
	// operand.
	ObjType *ast.Object

	// Ctx is EnterContext/PopContext/ResumeContext's context-id operand
	// (empty for EnterContext, which allocates a fresh one and binds it
	// to Dest).
	Ctx string

	// JobID/RetMap back RetMapGet: look up JobID's result in the RetMap
	// location.
	JobID  Ref
	RetMap Location

	// File/Line/Col back PositionAnnotation.
	File string
	Line int
	Col  int

	// Pos is a best-effort source position carried for diagnostics and
	// CFG error messages. It is not part of the wire format: the
	// textual/binary (de)serializers never read or write it.
	Pos ast.Position
}

// HasDest reports whether this instruction binds a result.
func (i *Instr) HasDest() bool { return i.Dest.Name != "" }

// ---- Constructors, grouped by family ----

func AssignValue(dest Location, src Ref) *Instr {
	return &Instr{Tag: TagAssignValue, Dest: dest, Src: src}
}

func AssignEval(dest Location, op Tag, args ...Ref) *Instr {
	return &Instr{Tag: TagAssignEval, Dest: dest, EvalOp: op, Args: args}
}

func MapInit(dest Location, inner ast.Type) *Instr {
	return &Instr{Tag: TagMapInit, Dest: dest, ElemType: inner}
}
func MapGet(dest Location, m Ref, key Ref) *Instr {
	return &Instr{Tag: TagMapGet, Dest: dest, Recv: m, Key: key}
}
func MapSet(m Ref, key Ref, value Ref) *Instr {
	return &Instr{Tag: TagMapSet, Recv: m, Key: key, Value: value}
}
func EnumInit(dest Location, inner ast.Type) *Instr {
	return &Instr{Tag: TagEnumInit, Dest: dest, ElemType: inner}
}
func EnumAppend(arr Ref, value Ref) *Instr {
	return &Instr{Tag: TagEnumAppend, Recv: arr, Value: value}
}
func EnumGet(dest Location, arr Ref, index Ref) *Instr {
	return &Instr{Tag: TagEnumGet, Dest: dest, Recv: arr, Key: index}
}
func EnumSet(arr Ref, index Ref, value Ref) *Instr {
	return &Instr{Tag: TagEnumSet, Recv: arr, Key: index, Value: value}
}
func EnumConcat(dest Location, a Ref, b Ref) *Instr {
	return &Instr{Tag: TagEnumConcat, Dest: dest, Recv: a, Value: b}
}
func EnumLength(dest Location, arr Ref) *Instr {
	return &Instr{Tag: TagEnumLength, Dest: dest, Recv: arr}
}

func BeginFunction(name string) *Instr { return &Instr{Tag: TagBeginFunction, FuncName: name} }
func FunctionParam(dest Location, ordinal int) *Instr {
	return &Instr{Tag: TagFunctionParam, Dest: dest, Args: []Ref{NumberRef{Value: float64(ordinal)}}}
}
func Return0() *Instr           { return &Instr{Tag: TagReturn0} }
func Return1(value Ref) *Instr  { return &Instr{Tag: TagReturn1, Src: value} }

func Call0(dest Location, target string) *Instr {
	return &Instr{Tag: TagCall0, Dest: dest, FuncName: target}
}
func Call1(dest Location, target string, arg Ref) *Instr {
	return &Instr{Tag: TagCall1, Dest: dest, FuncName: target, Args: []Ref{arg}}
}

// CallValue0/CallValue1 invoke a callee known only as a Ref (a curried
// FunctionRef, or a location holding one) rather than a statically-named
// region: the same Call0/Call1 tags, carrying Callee instead of FuncName.
func CallValue0(dest Location, callee Ref) *Instr {
	return &Instr{Tag: TagCall0, Dest: dest, Callee: callee}
}
func CallValue1(dest Location, callee Ref, arg Ref) *Instr {
	return &Instr{Tag: TagCall1, Dest: dest, Callee: callee, Args: []Ref{arg}}
}

func Curry(dest Location, callee Ref, bound Ref) *Instr {
	return &Instr{Tag: TagCurry, Dest: dest, Callee: callee, Value: bound}
}
func CallIf0(cond Ref, target string) *Instr {
	return &Instr{Tag: TagCallIf0, Cond: cond, FuncName: target}
}
func CallElse0(cond Ref, target string) *Instr {
	return &Instr{Tag: TagCallElse0, Cond: cond, FuncName: target}
}
func PushCall0(dest Location, target string) *Instr {
	return &Instr{Tag: TagPushCall0, Dest: dest, FuncName: target}
}
func PushCall1(dest Location, target string, arg Ref) *Instr {
	return &Instr{Tag: TagPushCall1, Dest: dest, FuncName: target, Args: []Ref{arg}}
}
func PushCallValue0(dest Location, callee Ref) *Instr {
	return &Instr{Tag: TagPushCall0, Dest: dest, Callee: callee}
}
func PushCallValue1(dest Location, callee Ref, arg Ref) *Instr {
	return &Instr{Tag: TagPushCall1, Dest: dest, Callee: callee, Args: []Ref{arg}}
}

func While(cond string, body string) *Instr {
	return &Instr{Tag: TagWhile, FuncName: body, Callee: FunctionRef{Name: cond}}
}
func Enumerate(elem ast.Type, source Ref, body string) *Instr {
	return &Instr{Tag: TagEnumerate, ElemType: elem, Source: source, FuncName: body}
}
func With(source Ref, body string) *Instr {
	return &Instr{Tag: TagWith, Source: source, FuncName: body}
}

func EnterContext(dest Location) *Instr { return &Instr{Tag: TagEnterContext, Dest: dest} }
func PopContext(ctx string) *Instr      { return &Instr{Tag: TagPopContext, Ctx: ctx} }
func ResumeContext(ctx string) *Instr   { return &Instr{Tag: TagResumeContext, Ctx: ctx} }
func Drain() *Instr                     { return &Instr{Tag: TagDrain} }
func RetMapGet(dest Location, retMap Location, jobID Ref) *Instr {
	return &Instr{Tag: TagRetMapGet, Dest: dest, RetMap: retMap, JobID: jobID}
}
func Lock(l Location) *Instr   { return &Instr{Tag: TagLock, Loc: l} }
func Unlock(l Location) *Instr { return &Instr{Tag: TagUnlock, Loc: l} }

func ScopeOf(l Location) *Instr { return &Instr{Tag: TagScopeOf, Loc: l} }

func ObjInit(dest Location, t *ast.Object) *Instr {
	return &Instr{Tag: TagObjInit, Dest: dest, ObjType: t}
}
func ObjSet(obj Ref, prop string, value Ref) *Instr {
	return &Instr{Tag: TagObjSet, Obj: obj, Prop: prop, Value: value}
}
func ObjGet(dest Location, obj Ref, prop string) *Instr {
	return &Instr{Tag: TagObjGet, Dest: dest, Obj: obj, Prop: prop}
}
func ObjInstance(dest Location, obj Ref) *Instr {
	return &Instr{Tag: TagObjInstance, Dest: dest, Obj: obj}
}
func OTypeInit(dest Location, t *ast.Object) *Instr {
	return &Instr{Tag: TagOTypeInit, Dest: dest, ObjType: t}
}
func OTypeProp(target Location, prop string, t ast.Type) *Instr {
	return &Instr{Tag: TagOTypeProp, Loc: target, Prop: prop, ElemType: t}
}
func OTypeFinalize(dest Location, target Location) *Instr {
	return &Instr{Tag: TagOTypeFinalize, Dest: dest, Loc: target}
}

func PositionAnnotation(file string, line, col int) *Instr {
	return &Instr{Tag: TagPositionAnnotation, File: file, Line: line, Col: col}
}

// ---- Rendering (textual form) ----

func refString(r Ref) string {
	if r == nil {
		return "-"
	}
	return r.String()
}

// String renders one instruction in the textual ISA form: one
// instruction per line, space-separated operands, `$l:/$s:/$f:/$p:/$o:`
// location prefixes.
func (i *Instr) String() string {
	var b strings.Builder
	b.WriteString(i.Tag.String())
	parts := i.textOperands()
	for _, p := range parts {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	return b.String()
}

func (i *Instr) textOperands() []string {
	var parts []string
	add := func(s string) { parts = append(parts, s) }
	addDest := func() {
		if i.HasDest() {
			add(i.Dest.String())
		}
	}
	switch i.Tag {
	case TagAssignValue:
		addDest()
		add(refString(i.Src))
	case TagAssignEval:
		addDest()
		inner := i.EvalOp.String() + "(" + joinRefs(i.Args) + ")"
		add(inner)
	case TagMapInit, TagEnumInit:
		addDest()
		add("t:" + i.ElemType.String())
	case TagMapGet, TagEnumGet:
		addDest()
		add(refString(i.Recv))
		add(refString(i.Key))
	case TagMapSet, TagEnumSet:
		add(refString(i.Recv))
		add(refString(i.Key))
		add(refString(i.Value))
	case TagEnumAppend:
		add(refString(i.Recv))
		add(refString(i.Value))
	case TagEnumConcat:
		addDest()
		add(refString(i.Recv))
		add(refString(i.Value))
	case TagEnumLength:
		addDest()
		add(refString(i.Recv))
	case TagBeginFunction:
		add("$f:" + i.FuncName)
	case TagFunctionParam:
		addDest()
		add(refString(i.Args[0]))
	case TagReturn0:
	case TagReturn1:
		add(refString(i.Src))
	case TagCall0, TagPushCall0:
		addDest()
		if i.FuncName != "" {
			add("$f:" + i.FuncName)
		} else {
			add(refString(i.Callee))
		}
	case TagCall1, TagPushCall1:
		addDest()
		if i.FuncName != "" {
			add("$f:" + i.FuncName)
		} else {
			add(refString(i.Callee))
		}
		add(refString(i.Args[0]))
	case TagCurry:
		addDest()
		add(refString(i.Callee))
		add(refString(i.Value))
	case TagCallIf0, TagCallElse0:
		add(refString(i.Cond))
		add("$f:" + i.FuncName)
	case TagWhile:
		add(i.Callee.String())
		add("$f:" + i.FuncName)
	case TagEnumerate:
		add("t:" + i.ElemType.String())
		add(refString(i.Source))
		add("$f:" + i.FuncName)
	case TagWith:
		add(refString(i.Source))
		add("$f:" + i.FuncName)
	case TagEnterContext:
		addDest()
	case TagPopContext, TagResumeContext:
		add(i.Ctx)
	case TagDrain:
	case TagRetMapGet:
		addDest()
		add(i.RetMap.String())
		add(refString(i.JobID))
	case TagLock, TagUnlock:
		add(i.Loc.String())
	case TagScopeOf:
		add(i.Loc.String())
	case TagObjInit, TagOTypeInit:
		addDest()
		add("t:" + i.ObjType.Name)
	case TagObjSet:
		add(refString(i.Obj))
		add(i.Prop)
		add(refString(i.Value))
	case TagObjGet:
		addDest()
		add(refString(i.Obj))
		add(i.Prop)
	case TagObjInstance:
		addDest()
		add(refString(i.Obj))
	case TagOTypeProp:
		add(i.Loc.String())
		add(i.Prop)
		add("t:" + i.ElemType.String())
	case TagOTypeFinalize:
		addDest()
		add(i.Loc.String())
	case TagPositionAnnotation:
		add(i.File)
		add(fmt.Sprintf("%d", i.Line))
		add(fmt.Sprintf("%d", i.Col))
	default:
		if i.HasDest() {
			addDest()
		}
		for _, a := range i.Args {
			add(refString(a))
		}
	}
	return parts
}

func joinRefs(rs []Ref) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = refString(r)
	}
	return strings.Join(parts, ", ")
}
