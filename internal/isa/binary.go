package isa

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/swarmlang/swarm/internal/ast"
)

// Binary record/operand kinds: each operand is
// {u8 kind, payload}; Function operands additionally carry a partial-
// application stack, Stream operands an id + inner type.
const (
	opKindLocation   byte = 0
	opKindNumber     byte = 1
	opKindString     byte = 2
	opKindBoolean    byte = 3
	opKindType       byte = 4
	opKindObjectType byte = 5
	opKindFunction   byte = 6
	opKindStream     byte = 7
)

// affinity byte codes used only in the binary encoding of a Location
// payload (not part of Ref's public Kind space).
var affinityByte = map[Affinity]byte{
	Local: 0, Shared: 1, Function: 2, ObjectProp: 3, PrimitiveAffinity: 4,
}
var byteAffinity = map[byte]Affinity{
	0: Local, 1: Shared, 2: Function, 3: ObjectProp, 4: PrimitiveAffinity,
}

// EncodeProgram serializes p into the length-prefixed binary record
// form: a u32 instruction count, then per instruction a
// {u16 tag, u8 operand_count, operand[...]} record.
func EncodeProgram(p *Program) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(p.Instrs))); err != nil {
		return nil, err
	}
	for _, in := range p.Instrs {
		refs, err := operandRefs(in)
		if err != nil {
			return nil, err
		}
		if len(refs) > 255 {
			return nil, fmt.Errorf("instruction %s has more than 255 operands", in.Tag)
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(in.Tag)); err != nil {
			return nil, err
		}
		buf.WriteByte(byte(len(refs)))
		for _, r := range refs {
			if err := encodeRef(&buf, r); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

// DecodeProgram is EncodeProgram's inverse.
func DecodeProgram(data []byte) (*Program, error) {
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	instrs := make([]*Instr, 0, count)
	for i := uint32(0); i < count; i++ {
		var tagNum uint16
		if err := binary.Read(r, binary.BigEndian, &tagNum); err != nil {
			return nil, err
		}
		opCountByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		refs := make([]Ref, opCountByte)
		for j := 0; j < int(opCountByte); j++ {
			ref, err := decodeRef(r)
			if err != nil {
				return nil, err
			}
			refs[j] = ref
		}
		in, err := fromRefs(Tag(tagNum), refs)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, in)
	}
	return NewProgram(instrs), nil
}

func encodeRef(buf *bytes.Buffer, r Ref) error {
	switch v := r.(type) {
	case Location:
		buf.WriteByte(opKindLocation)
		ab, ok := affinityByte[v.Affinity]
		if !ok {
			return fmt.Errorf("unknown affinity %v", v.Affinity)
		}
		buf.WriteByte(ab)
		return writeString(buf, v.Name)
	case NumberRef:
		buf.WriteByte(opKindNumber)
		return binary.Write(buf, binary.BigEndian, v.Value)
	case StringRef:
		buf.WriteByte(opKindString)
		return writeString(buf, v.Value)
	case BooleanRef:
		buf.WriteByte(opKindBoolean)
		if v.Value {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return nil
	case TypeRef:
		buf.WriteByte(opKindType)
		return writeString(buf, v.Type.String())
	case ObjectTypeRef:
		buf.WriteByte(opKindObjectType)
		return writeString(buf, v.Object.Name)
	case FunctionRef:
		buf.WriteByte(opKindFunction)
		if err := writeString(buf, v.Name); err != nil {
			return err
		}
		if len(v.Partials) > 255 {
			return fmt.Errorf("function reference %q has more than 255 partials", v.Name)
		}
		buf.WriteByte(byte(len(v.Partials)))
		for _, p := range v.Partials {
			if err := encodeRef(buf, p); err != nil {
				return err
			}
		}
		return nil
	case StreamRef:
		buf.WriteByte(opKindStream)
		if err := writeString(buf, v.ID); err != nil {
			return err
		}
		inner := ""
		if v.Inner != nil {
			inner = v.Inner.String()
		}
		return writeString(buf, inner)
	default:
		return fmt.Errorf("cannot encode operand of type %T", r)
	}
}

func decodeRef(r *bytes.Reader) (Ref, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch kind {
	case opKindLocation:
		ab, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		aff, ok := byteAffinity[ab]
		if !ok {
			return nil, fmt.Errorf("unknown affinity byte %d", ab)
		}
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		return Loc(aff, name), nil
	case opKindNumber:
		var v float64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, err
		}
		return NumberRef{Value: v}, nil
	case opKindString:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return StringRef{Value: s}, nil
	case opKindBoolean:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return BooleanRef{Value: b != 0}, nil
	case opKindType:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		t, err := ParseTypeString(s)
		if err != nil {
			return nil, err
		}
		return TypeRef{Type: t}, nil
	case opKindObjectType:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		return ObjectTypeRef{Object: &ast.Object{ID: ast.NextObjectID(), Name: name}}, nil
	case opKindFunction:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		n, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		partials := make([]Ref, n)
		for i := 0; i < int(n); i++ {
			p, err := decodeRef(r)
			if err != nil {
				return nil, err
			}
			partials[i] = p
		}
		return FunctionRef{Name: name, Partials: partials}, nil
	case opKindStream:
		id, err := readString(r)
		if err != nil {
			return nil, err
		}
		innerStr, err := readString(r)
		if err != nil {
			return nil, err
		}
		var inner ast.Type
		if innerStr != "" {
			inner, err = ParseTypeString(innerStr)
			if err != nil {
				return nil, err
			}
		}
		return StreamRef{ID: id, Inner: inner}, nil
	default:
		return nil, fmt.Errorf("unknown operand kind byte %d", kind)
	}
}

func writeString(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

// funcRef lets operandRefs treat a bare function-region name uniformly as
// a Ref for encoding purposes.
func funcRef(name string) Ref { return FunctionRef{Name: name} }

// callTarget encodes a call instruction's target: the static FuncName when
// set, the dynamic Callee ref otherwise.
func callTarget(i *Instr) Ref {
	if i.FuncName != "" {
		return funcRef(i.FuncName)
	}
	return i.Callee
}

// decodeCallTarget is callTarget's inverse: a bare FunctionRef becomes the
// static name form, anything else (a Location, or a FunctionRef carrying
// curried partials) stays a dynamic Callee.
func decodeCallTarget(r Ref) (string, Ref) {
	if fr, ok := r.(FunctionRef); ok && len(fr.Partials) == 0 {
		return fr.Name, nil
	}
	return "", r
}

// operandRefs flattens one instruction into the ordered Ref list the
// binary encoding stores, mirroring Instr.textOperands' field order.
func operandRefs(i *Instr) ([]Ref, error) {
	var refs []Ref
	add := func(r Ref) { refs = append(refs, r) }
	addDest := func() {
		if i.HasDest() {
			add(i.Dest)
		}
	}
	switch i.Tag {
	case TagAssignValue:
		addDest()
		add(i.Src)
	case TagAssignEval:
		addDest()
		add(funcRef(i.EvalOp.String()))
		for _, a := range i.Args {
			add(a)
		}
	case TagMapInit, TagEnumInit:
		addDest()
		add(TypeRef{Type: i.ElemType})
	case TagMapGet, TagEnumGet:
		addDest()
		add(i.Recv)
		add(i.Key)
	case TagMapSet, TagEnumSet:
		add(i.Recv)
		add(i.Key)
		add(i.Value)
	case TagEnumAppend:
		add(i.Recv)
		add(i.Value)
	case TagEnumConcat:
		addDest()
		add(i.Recv)
		add(i.Value)
	case TagEnumLength:
		addDest()
		add(i.Recv)
	case TagBeginFunction:
		add(funcRef(i.FuncName))
	case TagFunctionParam:
		addDest()
		add(i.Args[0])
	case TagReturn0:
	case TagReturn1:
		add(i.Src)
	case TagCall0, TagPushCall0:
		addDest()
		add(callTarget(i))
	case TagCall1, TagPushCall1:
		addDest()
		add(callTarget(i))
		add(i.Args[0])
	case TagCurry:
		addDest()
		add(i.Callee)
		add(i.Value)
	case TagCallIf0, TagCallElse0:
		add(i.Cond)
		add(funcRef(i.FuncName))
	case TagWhile:
		add(i.Callee)
		add(funcRef(i.FuncName))
	case TagEnumerate:
		add(TypeRef{Type: i.ElemType})
		add(i.Source)
		add(funcRef(i.FuncName))
	case TagWith:
		add(i.Source)
		add(funcRef(i.FuncName))
	case TagEnterContext:
		addDest()
	case TagPopContext, TagResumeContext:
		add(StringRef{Value: i.Ctx})
	case TagDrain:
	case TagRetMapGet:
		addDest()
		add(i.RetMap)
		add(i.JobID)
	case TagLock, TagUnlock:
		add(i.Loc)
	case TagScopeOf:
		add(i.Loc)
	case TagObjInit, TagOTypeInit:
		addDest()
		add(ObjectTypeRef{Object: i.ObjType})
	case TagObjSet:
		add(i.Obj)
		add(StringRef{Value: i.Prop})
		add(i.Value)
	case TagObjGet:
		addDest()
		add(i.Obj)
		add(StringRef{Value: i.Prop})
	case TagObjInstance:
		addDest()
		add(i.Obj)
	case TagOTypeProp:
		add(i.Loc)
		add(StringRef{Value: i.Prop})
		add(TypeRef{Type: i.ElemType})
	case TagOTypeFinalize:
		addDest()
		add(i.Loc)
	case TagPositionAnnotation:
		add(StringRef{Value: i.File})
		add(NumberRef{Value: float64(i.Line)})
		add(NumberRef{Value: float64(i.Col)})
	default:
		return nil, fmt.Errorf("operandRefs: unhandled tag %s", i.Tag)
	}
	return refs, nil
}

// fromRefs reconstructs an instruction from its decoded operand list,
// mirroring buildInstr's per-tag token handling but operating on already
// fully-typed Refs.
func fromRefs(tag Tag, refs []Ref) (*Instr, error) {
	loc := func(r Ref) (Location, error) {
		l, ok := r.(Location)
		if !ok {
			return Location{}, fmt.Errorf("%s: expected Location operand", tag)
		}
		return l, nil
	}
	fname := func(r Ref) (string, error) {
		fr, ok := r.(FunctionRef)
		if !ok {
			return "", fmt.Errorf("%s: expected Function operand", tag)
		}
		return fr.Name, nil
	}
	str := func(r Ref) (string, error) {
		s, ok := r.(StringRef)
		if !ok {
			return "", fmt.Errorf("%s: expected String operand", tag)
		}
		return s.Value, nil
	}
	num := func(r Ref) (float64, error) {
		n, ok := r.(NumberRef)
		if !ok {
			return 0, fmt.Errorf("%s: expected Number operand", tag)
		}
		return n.Value, nil
	}
	typ := func(r Ref) (ast.Type, error) {
		switch v := r.(type) {
		case TypeRef:
			return v.Type, nil
		case ObjectTypeRef:
			return v.Object, nil
		default:
			return nil, fmt.Errorf("%s: expected Type operand", tag)
		}
	}

	switch tag {
	case TagAssignValue:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		return AssignValue(dest, refs[1]), nil
	case TagAssignEval:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		name, err := fname(refs[1])
		if err != nil {
			return nil, err
		}
		opTag, ok := LookupTag(name)
		if !ok {
			return nil, fmt.Errorf("unknown AssignEval operation %q", name)
		}
		return &Instr{Tag: TagAssignEval, Dest: dest, EvalOp: opTag, Args: refs[2:]}, nil
	case TagMapInit, TagEnumInit:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		t, err := typ(refs[1])
		if err != nil {
			return nil, err
		}
		if tag == TagMapInit {
			return MapInit(dest, t), nil
		}
		return EnumInit(dest, t), nil
	case TagMapGet, TagEnumGet:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		if tag == TagMapGet {
			return MapGet(dest, refs[1], refs[2]), nil
		}
		return EnumGet(dest, refs[1], refs[2]), nil
	case TagMapSet, TagEnumSet:
		if tag == TagMapSet {
			return MapSet(refs[0], refs[1], refs[2]), nil
		}
		return EnumSet(refs[0], refs[1], refs[2]), nil
	case TagEnumAppend:
		return EnumAppend(refs[0], refs[1]), nil
	case TagEnumConcat:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		return EnumConcat(dest, refs[1], refs[2]), nil
	case TagEnumLength:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		return EnumLength(dest, refs[1]), nil
	case TagBeginFunction:
		name, err := fname(refs[0])
		if err != nil {
			return nil, err
		}
		return BeginFunction(name), nil
	case TagFunctionParam:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		n, err := num(refs[1])
		if err != nil {
			return nil, err
		}
		return FunctionParam(dest, int(n)), nil
	case TagReturn0:
		return Return0(), nil
	case TagReturn1:
		return Return1(refs[0]), nil
	case TagCall0, TagPushCall0:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		name, callee := decodeCallTarget(refs[1])
		if tag == TagCall0 {
			if name != "" {
				return Call0(dest, name), nil
			}
			return CallValue0(dest, callee), nil
		}
		if name != "" {
			return PushCall0(dest, name), nil
		}
		return PushCallValue0(dest, callee), nil
	case TagCall1, TagPushCall1:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		name, callee := decodeCallTarget(refs[1])
		if tag == TagCall1 {
			if name != "" {
				return Call1(dest, name, refs[2]), nil
			}
			return CallValue1(dest, callee, refs[2]), nil
		}
		if name != "" {
			return PushCall1(dest, name, refs[2]), nil
		}
		return PushCallValue1(dest, callee, refs[2]), nil
	case TagCurry:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		return Curry(dest, refs[1], refs[2]), nil
	case TagCallIf0, TagCallElse0:
		name, err := fname(refs[1])
		if err != nil {
			return nil, err
		}
		if tag == TagCallIf0 {
			return CallIf0(refs[0], name), nil
		}
		return CallElse0(refs[0], name), nil
	case TagWhile:
		condName, err := fname(refs[0])
		if err != nil {
			return nil, err
		}
		bodyName, err := fname(refs[1])
		if err != nil {
			return nil, err
		}
		return While(condName, bodyName), nil
	case TagEnumerate:
		t, err := typ(refs[0])
		if err != nil {
			return nil, err
		}
		bodyName, err := fname(refs[2])
		if err != nil {
			return nil, err
		}
		return Enumerate(t, refs[1], bodyName), nil
	case TagWith:
		bodyName, err := fname(refs[1])
		if err != nil {
			return nil, err
		}
		return With(refs[0], bodyName), nil
	case TagEnterContext:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		return EnterContext(dest), nil
	case TagPopContext, TagResumeContext:
		ctx, err := str(refs[0])
		if err != nil {
			return nil, err
		}
		if tag == TagPopContext {
			return PopContext(ctx), nil
		}
		return ResumeContext(ctx), nil
	case TagDrain:
		return Drain(), nil
	case TagRetMapGet:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		retMap, err := loc(refs[1])
		if err != nil {
			return nil, err
		}
		return RetMapGet(dest, retMap, refs[2]), nil
	case TagLock, TagUnlock:
		l, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		if tag == TagLock {
			return Lock(l), nil
		}
		return Unlock(l), nil
	case TagScopeOf:
		l, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		return ScopeOf(l), nil
	case TagObjInit, TagOTypeInit:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		ot, ok := refs[1].(ObjectTypeRef)
		if !ok {
			return nil, fmt.Errorf("%s: expected ObjectType operand", tag)
		}
		if tag == TagObjInit {
			return ObjInit(dest, ot.Object), nil
		}
		return OTypeInit(dest, ot.Object), nil
	case TagObjSet:
		prop, err := str(refs[1])
		if err != nil {
			return nil, err
		}
		return ObjSet(refs[0], prop, refs[2]), nil
	case TagObjGet:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		prop, err := str(refs[2])
		if err != nil {
			return nil, err
		}
		return ObjGet(dest, refs[1], prop), nil
	case TagObjInstance:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		return ObjInstance(dest, refs[1]), nil
	case TagOTypeProp:
		target, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		prop, err := str(refs[1])
		if err != nil {
			return nil, err
		}
		t, err := typ(refs[2])
		if err != nil {
			return nil, err
		}
		return OTypeProp(target, prop, t), nil
	case TagOTypeFinalize:
		dest, err := loc(refs[0])
		if err != nil {
			return nil, err
		}
		target, err := loc(refs[1])
		if err != nil {
			return nil, err
		}
		return OTypeFinalize(dest, target), nil
	case TagPositionAnnotation:
		file, err := str(refs[0])
		if err != nil {
			return nil, err
		}
		line, err := num(refs[1])
		if err != nil {
			return nil, err
		}
		col, err := num(refs[2])
		if err != nil {
			return nil, err
		}
		return PositionAnnotation(file, int(line), int(col)), nil
	default:
		return nil, fmt.Errorf("fromRefs: unhandled tag %s", tag)
	}
}
