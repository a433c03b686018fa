package isa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/swarmlang/swarm/internal/ast"
)

// ParseProgram parses the textual ISA form back into a Program.
// It is the inverse of Program.String()/Instr.String(): the textual ISA
// parses back to an instruction sequence that renders identically.
func ParseProgram(text string) (*Program, error) {
	var instrs []*Instr
	for lineNo, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		in, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		instrs = append(instrs, in)
	}
	return NewProgram(instrs), nil
}

func parseLine(line string) (*Instr, error) {
	tokens := tokenizeLine(line)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty instruction line")
	}
	tag, ok := LookupTag(tokens[0])
	if !ok {
		return nil, fmt.Errorf("unknown instruction mnemonic %q", tokens[0])
	}
	ops := tokens[1:]
	return buildInstr(tag, ops)
}

// tokenizeLine splits an instruction line into its mnemonic and operand
// tokens, respecting quoted strings and balanced ()/<> groups so an
// AssignEval's nested "Op(a, b)" payload or a parenthesized Lambda type
// stays one token.
func tokenizeLine(line string) []string {
	var tokens []string
	var cur strings.Builder
	depth := 0
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote:
			cur.WriteByte(c)
			if c == '"' && (i == 0 || line[i-1] != '\\') {
				inQuote = false
			}
		case c == '"':
			inQuote = true
			cur.WriteByte(c)
		case c == '(' || c == '<':
			depth++
			cur.WriteByte(c)
		case c == ')' || c == '>':
			depth--
			cur.WriteByte(c)
		case c == ' ' && depth == 0:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return tokens
}

func buildInstr(tag Tag, ops []string) (*Instr, error) {
	need := func(n int) error {
		if len(ops) < n {
			return fmt.Errorf("%s: expected at least %d operand(s), got %d", tag, n, len(ops))
		}
		return nil
	}

	switch tag {
	case TagAssignValue:
		if err := need(2); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		src, err := parseRef(ops[1])
		if err != nil {
			return nil, err
		}
		return AssignValue(dest, src), nil
	case TagAssignEval:
		if err := need(2); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		opTag, args, err := parseEval(ops[1])
		if err != nil {
			return nil, err
		}
		return &Instr{Tag: TagAssignEval, Dest: dest, EvalOp: opTag, Args: args}, nil
	case TagMapInit, TagEnumInit:
		if err := need(2); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		t, err := parseTypeOperand(ops[1])
		if err != nil {
			return nil, err
		}
		if tag == TagMapInit {
			return MapInit(dest, t), nil
		}
		return EnumInit(dest, t), nil
	case TagMapGet, TagEnumGet:
		if err := need(3); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		recv, err := parseRef(ops[1])
		if err != nil {
			return nil, err
		}
		key, err := parseRef(ops[2])
		if err != nil {
			return nil, err
		}
		if tag == TagMapGet {
			return MapGet(dest, recv, key), nil
		}
		return EnumGet(dest, recv, key), nil
	case TagMapSet, TagEnumSet:
		if err := need(3); err != nil {
			return nil, err
		}
		recv, err := parseRef(ops[0])
		if err != nil {
			return nil, err
		}
		key, err := parseRef(ops[1])
		if err != nil {
			return nil, err
		}
		val, err := parseRef(ops[2])
		if err != nil {
			return nil, err
		}
		if tag == TagMapSet {
			return MapSet(recv, key, val), nil
		}
		return EnumSet(recv, key, val), nil
	case TagEnumAppend:
		if err := need(2); err != nil {
			return nil, err
		}
		recv, err := parseRef(ops[0])
		if err != nil {
			return nil, err
		}
		val, err := parseRef(ops[1])
		if err != nil {
			return nil, err
		}
		return EnumAppend(recv, val), nil
	case TagEnumConcat:
		if err := need(3); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		a, err := parseRef(ops[1])
		if err != nil {
			return nil, err
		}
		b, err := parseRef(ops[2])
		if err != nil {
			return nil, err
		}
		return EnumConcat(dest, a, b), nil
	case TagEnumLength:
		if err := need(2); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		recv, err := parseRef(ops[1])
		if err != nil {
			return nil, err
		}
		return EnumLength(dest, recv), nil
	case TagBeginFunction:
		if err := need(1); err != nil {
			return nil, err
		}
		return BeginFunction(stripFuncPrefix(ops[0])), nil
	case TagFunctionParam:
		if err := need(2); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(ops[1])
		if err != nil {
			return nil, err
		}
		return FunctionParam(dest, n), nil
	case TagReturn0:
		return Return0(), nil
	case TagReturn1:
		if err := need(1); err != nil {
			return nil, err
		}
		v, err := parseRef(ops[0])
		if err != nil {
			return nil, err
		}
		return Return1(v), nil
	case TagCall0, TagPushCall0:
		if err := need(2); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		name, callee, err := parseCallTarget(ops[1])
		if err != nil {
			return nil, err
		}
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
		if err := need(3); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		name, callee, err := parseCallTarget(ops[1])
		if err != nil {
			return nil, err
		}
		arg, err := parseRef(ops[2])
		if err != nil {
			return nil, err
		}
		if tag == TagCall1 {
			if name != "" {
				return Call1(dest, name, arg), nil
			}
			return CallValue1(dest, callee, arg), nil
		}
		if name != "" {
			return PushCall1(dest, name, arg), nil
		}
		return PushCallValue1(dest, callee, arg), nil
	case TagCurry:
		if err := need(3); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		callee, err := parseRef(ops[1])
		if err != nil {
			return nil, err
		}
		val, err := parseRef(ops[2])
		if err != nil {
			return nil, err
		}
		return Curry(dest, callee, val), nil
	case TagCallIf0, TagCallElse0:
		if err := need(2); err != nil {
			return nil, err
		}
		cond, err := parseRef(ops[0])
		if err != nil {
			return nil, err
		}
		name := stripFuncPrefix(ops[1])
		if tag == TagCallIf0 {
			return CallIf0(cond, name), nil
		}
		return CallElse0(cond, name), nil
	case TagWhile:
		if err := need(2); err != nil {
			return nil, err
		}
		condName := stripFuncPrefix(ops[0])
		bodyName := stripFuncPrefix(ops[1])
		return While(condName, bodyName), nil
	case TagEnumerate:
		if err := need(3); err != nil {
			return nil, err
		}
		t, err := parseTypeOperand(ops[0])
		if err != nil {
			return nil, err
		}
		src, err := parseRef(ops[1])
		if err != nil {
			return nil, err
		}
		body := stripFuncPrefix(ops[2])
		return Enumerate(t, src, body), nil
	case TagWith:
		if err := need(2); err != nil {
			return nil, err
		}
		src, err := parseRef(ops[0])
		if err != nil {
			return nil, err
		}
		body := stripFuncPrefix(ops[1])
		return With(src, body), nil
	case TagEnterContext:
		if err := need(1); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		return EnterContext(dest), nil
	case TagPopContext, TagResumeContext:
		if err := need(1); err != nil {
			return nil, err
		}
		if tag == TagPopContext {
			return PopContext(ops[0]), nil
		}
		return ResumeContext(ops[0]), nil
	case TagDrain:
		return Drain(), nil
	case TagRetMapGet:
		if err := need(3); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		retMap, err := parseLocation(ops[1])
		if err != nil {
			return nil, err
		}
		job, err := parseRef(ops[2])
		if err != nil {
			return nil, err
		}
		return RetMapGet(dest, retMap, job), nil
	case TagLock, TagUnlock:
		if err := need(1); err != nil {
			return nil, err
		}
		l, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		if tag == TagLock {
			return Lock(l), nil
		}
		return Unlock(l), nil
	case TagScopeOf:
		if err := need(1); err != nil {
			return nil, err
		}
		l, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		return ScopeOf(l), nil
	case TagObjInit, TagOTypeInit:
		if err := need(2); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		t, err := parseTypeOperand(ops[1])
		if err != nil {
			return nil, err
		}
		obj, ok := t.(*ast.Object)
		if !ok {
			return nil, fmt.Errorf("%s: expected object type operand", tag)
		}
		if tag == TagObjInit {
			return ObjInit(dest, obj), nil
		}
		return OTypeInit(dest, obj), nil
	case TagObjSet:
		if err := need(3); err != nil {
			return nil, err
		}
		obj, err := parseRef(ops[0])
		if err != nil {
			return nil, err
		}
		val, err := parseRef(ops[2])
		if err != nil {
			return nil, err
		}
		return ObjSet(obj, ops[1], val), nil
	case TagObjGet:
		if err := need(3); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		obj, err := parseRef(ops[1])
		if err != nil {
			return nil, err
		}
		return ObjGet(dest, obj, ops[2]), nil
	case TagObjInstance:
		if err := need(2); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		obj, err := parseRef(ops[1])
		if err != nil {
			return nil, err
		}
		return ObjInstance(dest, obj), nil
	case TagOTypeProp:
		if err := need(3); err != nil {
			return nil, err
		}
		target, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		t, err := parseTypeOperand(ops[2])
		if err != nil {
			return nil, err
		}
		return OTypeProp(target, ops[1], t), nil
	case TagOTypeFinalize:
		if err := need(2); err != nil {
			return nil, err
		}
		dest, err := parseLocation(ops[0])
		if err != nil {
			return nil, err
		}
		target, err := parseLocation(ops[1])
		if err != nil {
			return nil, err
		}
		return OTypeFinalize(dest, target), nil
	case TagPositionAnnotation:
		if err := need(3); err != nil {
			return nil, err
		}
		line, err := strconv.Atoi(ops[1])
		if err != nil {
			return nil, err
		}
		col, err := strconv.Atoi(ops[2])
		if err != nil {
			return nil, err
		}
		return PositionAnnotation(ops[0], line, col), nil
	default:
		return nil, fmt.Errorf("unsupported mnemonic %s", tag)
	}
}

// parseEval parses an AssignEval payload of the form "Op(a, b)".
func parseEval(tok string) (Tag, []Ref, error) {
	open := strings.IndexByte(tok, '(')
	if open < 0 || !strings.HasSuffix(tok, ")") {
		return 0, nil, fmt.Errorf("malformed AssignEval payload %q", tok)
	}
	name := tok[:open]
	opTag, ok := LookupTag(name)
	if !ok {
		return 0, nil, fmt.Errorf("unknown operation %q in AssignEval payload", name)
	}
	body := tok[open+1 : len(tok)-1]
	argToks := splitTopLevelCommas(body)
	args := make([]Ref, 0, len(argToks))
	for _, a := range argToks {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		r, err := parseRef(a)
		if err != nil {
			return 0, nil, err
		}
		args = append(args, r)
	}
	return opTag, args, nil
}

func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func stripFuncPrefix(s string) string {
	return strings.TrimPrefix(s, "$f:")
}

// parseCallTarget reads a call instruction's target operand: a bare
// function name (`$f:name` with no partials) yields the static FuncName
// form, anything else -- a location holding a function value, or a
// FunctionRef with curried partials -- yields the dynamic Callee form.
func parseCallTarget(tok string) (string, Ref, error) {
	if strings.HasPrefix(tok, "$f:") && !strings.Contains(tok, "<-") {
		return tok[3:], nil, nil
	}
	r, err := parseRef(tok)
	if err != nil {
		return "", nil, err
	}
	return "", r, nil
}

func parseLocation(tok string) (Location, error) {
	if len(tok) < 3 || tok[0] != '$' || tok[2] != ':' {
		return Location{}, fmt.Errorf("expected a location operand, got %q", tok)
	}
	name := tok[3:]
	switch tok[1] {
	case 'l':
		return Loc(Local, name), nil
	case 's':
		return Loc(Shared, name), nil
	case 'f':
		return Loc(Function, name), nil
	case 'o':
		return Loc(ObjectProp, name), nil
	case 'p':
		return Loc(PrimitiveAffinity, name), nil
	default:
		return Location{}, fmt.Errorf("unknown location affinity %q", tok)
	}
}

func parseRef(tok string) (Ref, error) {
	switch {
	case strings.HasPrefix(tok, "$f:"):
		rest := tok[3:]
		parts := strings.Split(rest, "<-")
		fr := FunctionRef{Name: parts[0]}
		for _, p := range parts[1:] {
			r, err := parseRef(p)
			if err != nil {
				return nil, err
			}
			fr.Partials = append(fr.Partials, r)
		}
		return fr, nil
	case strings.HasPrefix(tok, "$"):
		return parseLocation(tok)
	case strings.HasPrefix(tok, "t:"):
		return parseTypeOperandRef(tok[2:])
	case tok == "true":
		return BooleanRef{Value: true}, nil
	case tok == "false":
		return BooleanRef{Value: false}, nil
	case strings.HasPrefix(tok, "\"") && strings.HasSuffix(tok, "\""):
		unquoted, err := strconv.Unquote(tok)
		if err != nil {
			return nil, err
		}
		return StringRef{Value: unquoted}, nil
	case strings.HasPrefix(tok, "stream:"):
		rest := tok[len("stream:"):]
		idx := strings.IndexByte(rest, '<')
		if idx < 0 {
			return StreamRef{ID: rest}, nil
		}
		id := rest[:idx]
		innerStr := strings.TrimSuffix(rest[idx+1:], ">")
		inner, err := ParseTypeString(innerStr)
		if err != nil {
			return nil, err
		}
		return StreamRef{ID: id, Inner: inner}, nil
	default:
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot parse operand %q", tok)
		}
		return NumberRef{Value: f}, nil
	}
}

func parseTypeOperandRef(s string) (Ref, error) {
	t, err := ParseTypeString(s)
	if err != nil {
		return nil, err
	}
	if obj, ok := t.(*ast.Object); ok {
		return ObjectTypeRef{Object: obj}, nil
	}
	return TypeRef{Type: t}, nil
}

func parseTypeOperand(tok string) (ast.Type, error) {
	s := strings.TrimPrefix(tok, "t:")
	return ParseTypeString(s)
}
