// Package compiler is a single-pass Pratt parser that emits bytecode
// directly while it parses: there is no intermediate AST. A source string
// goes in, a top-level object.Function (with its own object.Chunk) comes
// out, ready for the VM to wrap in a closure and call.
package compiler

import (
	"strconv"

	"github.com/cinderlang/cinder/pkg/gc"
	"github.com/cinderlang/cinder/pkg/lexer"
	"github.com/cinderlang/cinder/pkg/object"
)

const (
	maxLocals   = 256
	maxUpvalues = 256
)

type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * / %
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[lexer.TokenType]parseRule

func init() {
	rules = map[lexer.TokenType]parseRule{
		lexer.TokenLeftParen:    {grouping, call, precCall},
		lexer.TokenDot:          {nil, dot, precCall},
		lexer.TokenMinus:        {unary, binary, precTerm},
		lexer.TokenPlus:         {nil, binary, precTerm},
		lexer.TokenSlash:        {nil, binary, precFactor},
		lexer.TokenStar:         {nil, binary, precFactor},
		lexer.TokenPercent:      {nil, binary, precFactor},
		lexer.TokenBang:         {unary, nil, precNone},
		lexer.TokenBangEqual:    {nil, binary, precEquality},
		lexer.TokenEqualEqual:   {nil, binary, precEquality},
		lexer.TokenGreater:      {nil, binary, precComparison},
		lexer.TokenGreaterEqual: {nil, binary, precComparison},
		lexer.TokenLess:         {nil, binary, precComparison},
		lexer.TokenLessEqual:    {nil, binary, precComparison},
		lexer.TokenIdentifier:   {variable, nil, precNone},
		lexer.TokenString:       {stringLit, nil, precNone},
		lexer.TokenNumber:       {number, nil, precNone},
		lexer.TokenAnd:          {nil, and_, precAnd},
		lexer.TokenOr:           {nil, or_, precOr},
		lexer.TokenFalse:        {literal, nil, precNone},
		lexer.TokenTrue:         {literal, nil, precNone},
		lexer.TokenNil:          {literal, nil, precNone},
		lexer.TokenThis:         {this_, nil, precNone},
		lexer.TokenSuper:        {super_, nil, precNone},
	}
}

func rule(t lexer.TokenType) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{nil, nil, precNone}
}

type functionType int

const (
	typeFunction functionType = iota
	typeScript
	typeMethod
	typeInitializer
)

type local struct {
	name       string
	depth      int
	isCaptured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

// compilerState is one frame of the nested-compiler chain: one per function
// or method currently being compiled. It owns the object.Function that will
// become a constant in its enclosing chunk once OP_CLOSURE emits it.
type compilerState struct {
	enclosing *compilerState
	function  *object.Function
	fnType    functionType

	locals     [maxLocals]local
	localCount int
	scopeDepth int

	upvalues [maxUpvalues]upvalueRef
}

type classCompiler struct {
	enclosing     *classCompiler
	hasSuperclass bool
}

// parser drives one Compile call. It is registered as a gc.RootSource for
// the lifetime of compilation so every Function still under construction
// survives a collection triggered by string interning.
type parser struct {
	lex    *lexer.Lexer
	source string
	heap   *gc.Heap

	current  lexer.Token
	previous lexer.Token

	hadError  bool
	panicMode bool
	errs      Errors

	cur   *compilerState
	class *classCompiler
}

// MarkRoots implements gc.RootSource: every Function in the active
// compiler chain is a root until Compile returns.
func (p *parser) MarkRoots(h *gc.Heap) {
	for c := p.cur; c != nil; c = c.enclosing {
		h.MarkObject(c.function)
		if c.function.Name != nil {
			h.MarkObject(c.function.Name)
		}
	}
}

// Compile compiles source into a top-level script Function. The returned
// error, if non-nil, is a compiler.Errors holding every diagnostic
// collected before synchronizing past it (the compiler never stops at the
// first error).
func Compile(source string, heap *gc.Heap) (*object.Function, error) {
	p := &parser{
		lex:    lexer.New(source),
		source: source,
		heap:   heap,
	}
	heap.AddRoot(p)
	defer heap.RemoveRoot(p)

	p.pushCompiler(typeScript)

	p.advance()
	for !p.match(lexer.TokenEOF) {
		p.declaration()
	}

	fn := p.popCompiler()
	if p.hadError {
		return nil, p.errs
	}
	return fn, nil
}

func (p *parser) pushCompiler(ft functionType) {
	c := &compilerState{enclosing: p.cur, fnType: ft, scopeDepth: 0}
	c.function = p.heap.NewFunction()
	// Link c into the chain before interning the name, so the new Function
	// is already a root if that allocation triggers a collection.
	p.cur = c
	if ft != typeScript {
		c.function.Name = p.heap.InternGoString(p.previous.Lexeme(p.source))
	}
	// Slot 0: "this" for methods/initializers, otherwise unnamed and
	// unreadable by user code.
	slot0 := local{depth: 0}
	if ft == typeMethod || ft == typeInitializer {
		slot0.name = "this"
	}
	c.locals[0] = slot0
	c.localCount = 1
}

// popCompiler finalizes the active compiler's function (emitting an
// implicit return) and pops back to the enclosing one.
func (p *parser) popCompiler() *object.Function {
	p.emitReturn()
	fn := p.cur.function
	p.cur = p.cur.enclosing
	return fn
}

// --- token stream -----------------------------------------------------

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.lex.NextToken()
		if p.current.Type != lexer.TokenError {
			break
		}
		p.errorAtCurrent(p.lex.LastError(), UnexpectedToken)
	}
}

func (p *parser) check(t lexer.TokenType) bool { return p.current.Type == t }

func (p *parser) match(t lexer.TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(t lexer.TokenType, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg, UnexpectedToken)
}

func (p *parser) lexeme(t lexer.Token) string { return t.Lexeme(p.source) }

// --- error reporting ---------------------------------------------------

func (p *parser) errorAtCurrent(msg string, kind ErrorKind) { p.errorAt(p.current, msg, kind) }
func (p *parser) error(msg string, kind ErrorKind) { p.errorAt(p.previous, msg, kind) }

func (p *parser) errorAt(tok lexer.Token, msg string, kind ErrorKind) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	lexeme := ""
	if tok.Type != lexer.TokenEOF {
		lexeme = p.lexeme(tok)
	}
	p.errs = append(p.errs, &Error{Kind: kind, Line: tok.Line, Lexeme: lexeme, Msg: msg})
}

// synchronize skips tokens until a likely statement boundary, so one
// Compile call can surface more than one diagnostic.
func (p *parser) synchronize() {
	p.panicMode = false
	for p.current.Type != lexer.TokenEOF {
		if p.previous.Type == lexer.TokenSemicolon {
			return
		}
		switch p.current.Type {
		case lexer.TokenClass, lexer.TokenFun, lexer.TokenVar, lexer.TokenFor,
			lexer.TokenIf, lexer.TokenWhile, lexer.TokenPrint, lexer.TokenReturn:
			return
		}
		p.advance()
	}
}

// --- emission ------------------------------------------------------------

func (p *parser) chunk() *object.Chunk { return &p.cur.function.Chunk }

func (p *parser) emitByte(b byte) { p.chunk().Write(b, p.previous.Line) }

func (p *parser) emitOp(op object.OpCode) { p.chunk().WriteOp(op, p.previous.Line) }

func (p *parser) emitOpByte(op object.OpCode, b byte) {
	p.emitOp(op)
	p.emitByte(b)
}

func (p *parser) emitLoop(loopStart int) {
	p.emitOp(object.OpLoop)
	offset := len(p.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		p.error("Loop body too large.", LoopTooLarge)
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset & 0xff))
}

// emitJump emits op followed by a two-byte placeholder and returns the
// offset of the first placeholder byte, for patchJump to fill in later.
func (p *parser) emitJump(op object.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 2
}

func (p *parser) patchJump(offset int) {
	jump := len(p.chunk().Code) - offset - 2
	if jump > 0xffff {
		p.error("Too much code to jump over.", JumpTooLarge)
	}
	p.chunk().Code[offset] = byte(jump >> 8)
	p.chunk().Code[offset+1] = byte(jump & 0xff)
}

func (p *parser) emitReturn() {
	if p.cur.fnType == typeInitializer {
		p.emitOpByte(object.OpGetLocal, 0)
	} else {
		p.emitOp(object.OpNil)
	}
	p.emitOp(object.OpReturn)
}

func (p *parser) makeConstant(v object.Value) byte {
	idx, ok := p.chunk().AddConstant(v)
	if !ok {
		p.error("Too many constants in one chunk.", TooManyConstants)
		return 0
	}
	return byte(idx)
}

func (p *parser) emitConstant(v object.Value) {
	p.emitOpByte(object.OpConstant, p.makeConstant(v))
}

func (p *parser) identifierConstant(tok lexer.Token) byte {
	return p.identifierConstantName(p.lexeme(tok))
}

func (p *parser) identifierConstantName(name string) byte {
	return p.makeConstant(object.FromObj(p.heap.InternGoString(name)))
}

// --- scopes and locals ---------------------------------------------------

func (p *parser) beginScope() { p.cur.scopeDepth++ }

func (p *parser) endScope() {
	p.cur.scopeDepth--
	for p.cur.localCount > 0 && p.cur.locals[p.cur.localCount-1].depth > p.cur.scopeDepth {
		if p.cur.locals[p.cur.localCount-1].isCaptured {
			p.emitOp(object.OpCloseUpvalue)
		} else {
			p.emitOp(object.OpPop)
		}
		p.cur.localCount--
	}
}

func (p *parser) resolveLocal(c *compilerState, name string) int {
	for i := c.localCount - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.name == name {
			if l.depth == -1 {
				p.error("Can't read local variable in its own initializer.", ReadLocalInOwnInitializer)
			}
			return i
		}
	}
	return -1
}

func (p *parser) addUpvalue(c *compilerState, index byte, isLocal bool) int {
	for i := 0; i < c.function.UpvalueCount; i++ {
		uv := c.upvalues[i]
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if c.function.UpvalueCount == maxUpvalues {
		p.error("Too many closure variables in function.", TooManyUpvalues)
		return 0
	}
	c.upvalues[c.function.UpvalueCount] = upvalueRef{index: index, isLocal: isLocal}
	c.function.UpvalueCount++
	return c.function.UpvalueCount - 1
}

func (p *parser) resolveUpvalue(c *compilerState, name string) int {
	if c.enclosing == nil {
		return -1
	}
	if local := p.resolveLocal(c.enclosing, name); local != -1 {
		c.enclosing.locals[local].isCaptured = true
		return p.addUpvalue(c, byte(local), true)
	}
	if up := p.resolveUpvalue(c.enclosing, name); up != -1 {
		return p.addUpvalue(c, byte(up), false)
	}
	return -1
}

func (p *parser) addLocal(name string) {
	if p.cur.localCount == maxLocals {
		p.error("Too many local variables in function.", TooManyLocals)
		return
	}
	p.cur.locals[p.cur.localCount] = local{name: name, depth: -1}
	p.cur.localCount++
}

func (p *parser) declareVariable() {
	if p.cur.scopeDepth == 0 {
		return
	}
	name := p.lexeme(p.previous)
	for i := p.cur.localCount - 1; i >= 0; i-- {
		l := &p.cur.locals[i]
		if l.depth != -1 && l.depth < p.cur.scopeDepth {
			break
		}
		if l.name == name {
			p.error("Already a variable with this name in this scope.", DuplicateLocal)
		}
	}
	p.addLocal(name)
}

func (p *parser) parseVariable(msg string) byte {
	p.consume(lexer.TokenIdentifier, msg)
	p.declareVariable()
	if p.cur.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous)
}

func (p *parser) markInitialized() {
	if p.cur.scopeDepth == 0 {
		return
	}
	p.cur.locals[p.cur.localCount-1].depth = p.cur.scopeDepth
}

func (p *parser) defineVariable(global byte) {
	if p.cur.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(object.OpDefineGlobal, global)
}

func (p *parser) argumentList() byte {
	argc := 0
	if !p.check(lexer.TokenRightParen) {
		for {
			p.expression()
			if argc == 255 {
				p.error("Can't have more than 255 arguments.", UnexpectedToken)
			}
			argc++
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRightParen, "Expect ')' after arguments.")
	return byte(argc)
}

// --- Pratt core ------------------------------------------------------

func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	prefixRule := rule(p.previous.Type).prefix
	if prefixRule == nil {
		p.error("Expect expression.", UnexpectedToken)
		return
	}
	canAssign := prec <= precAssignment
	prefixRule(p, canAssign)

	for prec <= rule(p.current.Type).precedence {
		p.advance()
		infixRule := rule(p.previous.Type).infix
		infixRule(p, canAssign)
	}

	if canAssign && p.match(lexer.TokenEqual) {
		p.error("Invalid assignment target.", InvalidAssignmentTarget)
	}
}

func (p *parser) expression() { p.parsePrecedence(precAssignment) }

// --- statements -----------------------------------------------------------

func (p *parser) declaration() {
	switch {
	case p.match(lexer.TokenClass):
		p.classDeclaration()
	case p.match(lexer.TokenFun):
		p.funDeclaration()
	case p.match(lexer.TokenVar):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(lexer.TokenEqual) {
		p.expression()
	} else {
		p.emitOp(object.OpNil)
	}
	p.consume(lexer.TokenSemicolon, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(typeFunction)
	p.defineVariable(global)
}

func (p *parser) function(ft functionType) {
	p.pushCompiler(ft)
	p.beginScope()

	p.consume(lexer.TokenLeftParen, "Expect '(' after function name.")
	if !p.check(lexer.TokenRightParen) {
		for {
			p.cur.function.Arity++
			if p.cur.function.Arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.", UnexpectedToken)
			}
			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRightParen, "Expect ')' after parameters.")
	p.consume(lexer.TokenLeftBrace, "Expect '{' before function body.")
	p.block()

	enclosing := p.cur
	fn := p.popCompiler()
	p.emitClosure(fn, enclosing)
}

// emitClosure emits OP_CLOSURE for fn plus, for each of its upvalues as
// recorded in the (already-popped) frame, the (isLocal, index) byte pair
// the VM's OP_CLOSURE handler consumes to build captures in the same
// first-encounter order the compiler assigned them.
func (p *parser) emitClosure(fn *object.Function, frame *compilerState) {
	p.emitOpByte(object.OpClosure, p.makeConstant(object.FromObj(fn)))
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := byte(0)
		if frame.upvalues[i].isLocal {
			isLocal = 1
		}
		p.emitByte(isLocal)
		p.emitByte(frame.upvalues[i].index)
	}
}

func (p *parser) classDeclaration() {
	p.consume(lexer.TokenIdentifier, "Expect class name.")
	nameTok := p.previous
	nameConst := p.identifierConstant(nameTok)
	p.declareVariable()

	p.emitOpByte(object.OpClass, nameConst)
	p.defineVariable(nameConst)

	cc := &classCompiler{enclosing: p.class}
	p.class = cc

	if p.match(lexer.TokenLess) {
		p.consume(lexer.TokenIdentifier, "Expect superclass name.")
		if p.lexeme(nameTok) == p.lexeme(p.previous) {
			p.error("A class can't inherit from itself.", InheritFromSelf)
		}
		variable(p, false)

		p.beginScope()
		p.addLocal("super")
		p.defineVariable(0)

		p.namedVariableByName(p.lexeme(nameTok), false)
		p.emitOp(object.OpInherit)
		cc.hasSuperclass = true
	}

	p.namedVariableByName(p.lexeme(nameTok), false)
	p.consume(lexer.TokenLeftBrace, "Expect '{' before class body.")
	for !p.check(lexer.TokenRightBrace) && !p.check(lexer.TokenEOF) {
		p.method()
	}
	p.consume(lexer.TokenRightBrace, "Expect '}' after class body.")
	p.emitOp(object.OpPop)

	if cc.hasSuperclass {
		p.endScope()
	}
	p.class = cc.enclosing
}

func (p *parser) method() {
	p.consume(lexer.TokenIdentifier, "Expect method name.")
	nameTok := p.previous
	nameConst := p.identifierConstant(nameTok)

	ft := typeMethod
	if p.lexeme(nameTok) == "init" {
		ft = typeInitializer
	}
	p.function(ft)
	p.emitOpByte(object.OpMethod, nameConst)
}

func (p *parser) statement() {
	switch {
	case p.match(lexer.TokenPrint):
		p.printStatement()
	case p.match(lexer.TokenIf):
		p.ifStatement()
	case p.match(lexer.TokenReturn):
		p.returnStatement()
	case p.match(lexer.TokenWhile):
		p.whileStatement()
	case p.match(lexer.TokenFor):
		p.forStatement()
	case p.match(lexer.TokenLeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) block() {
	for !p.check(lexer.TokenRightBrace) && !p.check(lexer.TokenEOF) {
		p.declaration()
	}
	p.consume(lexer.TokenRightBrace, "Expect '}' after block.")
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(lexer.TokenSemicolon, "Expect ';' after value.")
	p.emitOp(object.OpPrint)
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(lexer.TokenSemicolon, "Expect ';' after expression.")
	p.emitOp(object.OpPop)
}

func (p *parser) ifStatement() {
	p.consume(lexer.TokenLeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(lexer.TokenRightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(object.OpJumpIfFalse)
	p.emitOp(object.OpPop)
	p.statement()

	elseJump := p.emitJump(object.OpJump)
	p.patchJump(thenJump)
	p.emitOp(object.OpPop)

	if p.match(lexer.TokenElse) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.chunk().Code)
	p.consume(lexer.TokenLeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(lexer.TokenRightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(object.OpJumpIfFalse)
	p.emitOp(object.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(object.OpPop)
}

// forStatement desugars into a while loop. The increment clause is compiled
// first, emitting a jump over itself, so that the condition's loop-start
// is rebased to point at the increment rather than the condition check;
// reordering this breaks the increment running after the body each iteration.
func (p *parser) forStatement() {
	p.beginScope()
	p.consume(lexer.TokenLeftParen, "Expect '(' after 'for'.")

	switch {
	case p.match(lexer.TokenSemicolon):
		// no initializer
	case p.match(lexer.TokenVar):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.chunk().Code)
	exitJump := -1
	if !p.match(lexer.TokenSemicolon) {
		p.expression()
		p.consume(lexer.TokenSemicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(object.OpJumpIfFalse)
		p.emitOp(object.OpPop)
	}

	if !p.match(lexer.TokenRightParen) {
		bodyJump := p.emitJump(object.OpJump)
		incrStart := len(p.chunk().Code)
		p.expression()
		p.emitOp(object.OpPop)
		p.consume(lexer.TokenRightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(object.OpPop)
	}
	p.endScope()
}

func (p *parser) returnStatement() {
	if p.cur.fnType == typeScript {
		p.error("Can't return from top-level code.", ReturnAtTopLevel)
	}
	if p.match(lexer.TokenSemicolon) {
		p.emitReturn()
		return
	}
	if p.cur.fnType == typeInitializer {
		p.error("Can't return a value from an initializer.", ReturnValueFromInit)
	}
	p.expression()
	p.consume(lexer.TokenSemicolon, "Expect ';' after return value.")
	p.emitOp(object.OpReturn)
}

// --- expressions -----------------------------------------------------

func number(p *parser, _ bool) {
	n, _ := strconv.ParseFloat(p.lexeme(p.previous), 64)
	p.emitConstant(object.Number(n))
}

func stringLit(p *parser, _ bool) {
	raw := p.lexeme(p.previous)
	s := raw[1 : len(raw)-1] // strip the surrounding quotes; no escapes
	p.emitConstant(object.FromObj(p.heap.InternGoString(s)))
}

func literal(p *parser, _ bool) {
	switch p.previous.Type {
	case lexer.TokenFalse:
		p.emitOp(object.OpFalse)
	case lexer.TokenTrue:
		p.emitOp(object.OpTrue)
	case lexer.TokenNil:
		p.emitOp(object.OpNil)
	}
}

func grouping(p *parser, _ bool) {
	p.expression()
	p.consume(lexer.TokenRightParen, "Expect ')' after expression.")
}

func unary(p *parser, _ bool) {
	opType := p.previous.Type
	p.parsePrecedence(precUnary)
	switch opType {
	case lexer.TokenBang:
		p.emitOp(object.OpNot)
	case lexer.TokenMinus:
		p.emitOp(object.OpNegate)
	}
}

func binary(p *parser, _ bool) {
	opType := p.previous.Type
	r := rule(opType)
	p.parsePrecedence(r.precedence + 1)

	switch opType {
	case lexer.TokenBangEqual:
		p.emitOp(object.OpEqual)
		p.emitOp(object.OpNot)
	case lexer.TokenEqualEqual:
		p.emitOp(object.OpEqual)
	case lexer.TokenGreater:
		p.emitOp(object.OpGreater)
	case lexer.TokenGreaterEqual:
		p.emitOp(object.OpLess)
		p.emitOp(object.OpNot)
	case lexer.TokenLess:
		p.emitOp(object.OpLess)
	case lexer.TokenLessEqual:
		p.emitOp(object.OpGreater)
		p.emitOp(object.OpNot)
	case lexer.TokenPlus:
		p.emitOp(object.OpAdd)
	case lexer.TokenMinus:
		p.emitOp(object.OpSubtract)
	case lexer.TokenStar:
		p.emitOp(object.OpMultiply)
	case lexer.TokenSlash:
		p.emitOp(object.OpDivide)
	case lexer.TokenPercent:
		p.emitOp(object.OpModulo)
	}
}

func and_(p *parser, _ bool) {
	endJump := p.emitJump(object.OpJumpIfFalse)
	p.emitOp(object.OpPop)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func or_(p *parser, _ bool) {
	elseJump := p.emitJump(object.OpJumpIfFalse)
	endJump := p.emitJump(object.OpJump)
	p.patchJump(elseJump)
	p.emitOp(object.OpPop)
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func call(p *parser, _ bool) {
	argc := p.argumentList()
	p.emitOpByte(object.OpCall, argc)
}

func dot(p *parser, canAssign bool) {
	p.consume(lexer.TokenIdentifier, "Expect property name after '.'.")
	name := p.identifierConstant(p.previous)

	switch {
	case canAssign && p.match(lexer.TokenEqual):
		p.expression()
		p.emitOpByte(object.OpSetProperty, name)
	case p.match(lexer.TokenLeftParen):
		argc := p.argumentList()
		p.emitOpByte(object.OpInvoke, name)
		p.emitByte(argc)
	default:
		p.emitOpByte(object.OpGetProperty, name)
	}
}

func variable(p *parser, canAssign bool) {
	p.namedVariableByName(p.lexeme(p.previous), canAssign)
}

func (p *parser) namedVariableByName(name string, canAssign bool) {
	var getOp, setOp object.OpCode
	arg := p.resolveLocal(p.cur, name)
	if arg != -1 {
		getOp, setOp = object.OpGetLocal, object.OpSetLocal
	} else if arg = p.resolveUpvalue(p.cur, name); arg != -1 {
		getOp, setOp = object.OpGetUpvalue, object.OpSetUpvalue
	} else {
		arg = int(p.identifierConstantName(name))
		getOp, setOp = object.OpGetGlobal, object.OpSetGlobal
	}

	if canAssign && p.match(lexer.TokenEqual) {
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	} else {
		p.emitOpByte(getOp, byte(arg))
	}
}

func this_(p *parser, _ bool) {
	if p.class == nil {
		p.error("Can't use 'this' outside of a class.", ThisOutsideClass)
		return
	}
	p.namedVariableByName("this", false)
}

func super_(p *parser, _ bool) {
	if p.class == nil {
		p.error("Can't use 'super' outside of a class.", SuperOutsideClass)
	} else if !p.class.hasSuperclass {
		p.error("Can't use 'super' in a class with no superclass.", SuperWithoutSuperclass)
	}

	p.consume(lexer.TokenDot, "Expect '.' after 'super'.")
	p.consume(lexer.TokenIdentifier, "Expect superclass method name.")
	method := p.identifierConstant(p.previous)

	p.namedVariableByName("this", false)
	if p.match(lexer.TokenLeftParen) {
		argc := p.argumentList()
		p.namedVariableByName("super", false)
		p.emitOpByte(object.OpSuperInvoke, method)
		p.emitByte(argc)
	} else {
		p.namedVariableByName("super", false)
		p.emitOpByte(object.OpGetSuper, method)
	}
}
