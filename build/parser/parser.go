// Copyright 2025 The JPL Compiler Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package parser builds the source-syntax tree from a token stream.
//
// The parser is recursive descent with no backtracking: binop chains and
// postfix indexing are lowered to iteration, and each precedence tier
// peeks at the next operator token and leaves it unconsumed when it
// belongs to a lower tier. The first unexpected token is fatal.
package parser

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/jpl-lang/jplc/build/ast"
	"github.com/jpl-lang/jplc/build/fmterr"
	"github.com/jpl-lang/jplc/build/token"
)

type parser struct {
	tokens []token.Token
	i      int
}

// Parse consumes the token stream and returns the top-level commands.
func Parse(tokens []token.Token) ([]ast.Command, error) {
	p := &parser{tokens: tokens}
	var cmds []ast.Command
	if p.peek() == token.Newline {
		p.i++
	}
	for p.peek() != token.EOF {
		cmd, err := p.command()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
		if _, err := p.expect(token.Newline); err != nil {
			return nil, err
		}
	}
	return cmds, nil
}

func (p *parser) peek() token.Kind {
	if p.i >= len(p.tokens) {
		return token.EOF
	}
	return p.tokens[p.i].Kind
}

func (p *parser) at() token.Token {
	if p.i >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.i]
}

// expect consumes the next token, requiring its kind.
func (p *parser) expect(kind token.Kind) (token.Token, error) {
	t := p.at()
	if t.Kind != kind {
		return t, p.errorf(t, "Expected token of type %s, but got a token of type %s.", kind, t.Kind)
	}
	p.i++
	return t, nil
}

func (p *parser) errorf(t token.Token, format string, a ...any) error {
	return fmterr.New(fmterr.Parsing, t.Line, t.Pos, "Token Type "+t.Kind.String(), errors.Errorf(format, a...))
}

// parseInt converts an integer literal, rejecting 64-bit overflow.
func (p *parser) parseInt(t token.Token) (int64, error) {
	v, err := strconv.ParseInt(t.Text, 10, 64)
	if err != nil {
		return 0, p.errorf(t, "Int was too big to parse. Tried to parse %s.", t.Text)
	}
	return v, nil
}

func (p *parser) command() (ast.Command, error) {
	switch p.peek() {
	case token.Read:
		return p.readCmd()
	case token.Write:
		return p.writeCmd()
	case token.Type:
		return p.typeCmd()
	case token.Let:
		return p.letCmd()
	case token.Assert:
		return p.assertCmd()
	case token.Print:
		return p.printCmd()
	case token.Show:
		return p.showCmd()
	case token.Time:
		return p.timeCmd()
	case token.Fn:
		return p.fnCmd()
	}
	t := p.at()
	return nil, p.errorf(t, "Failed to parse a command; got a %s token instead.", t.Kind)
}

func (p *parser) stringLit() (*ast.StringLit, error) {
	t, err := p.expect(token.String)
	if err != nil {
		return nil, err
	}
	return &ast.StringLit{Src: src(t)}, nil
}

func src(t token.Token) ast.Src {
	return ast.Src{Text: t.Text, Line: t.Line, Pos: t.Pos}
}

func (p *parser) readCmd() (ast.Command, error) {
	read, _ := p.expect(token.Read)
	if _, err := p.expect(token.Image); err != nil {
		return nil, err
	}
	file, err := p.stringLit()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.To); err != nil {
		return nil, err
	}
	arg, err := p.argument()
	if err != nil {
		return nil, err
	}
	text := "read image " + file.Text + " to " + arg.Source().Text
	return &ast.ReadCmd{
		Src:      ast.Src{Text: text, Line: read.Line, Pos: read.Pos},
		FileName: file,
		Into:     arg,
	}, nil
}

func (p *parser) writeCmd() (ast.Command, error) {
	write, _ := p.expect(token.Write)
	if _, err := p.expect(token.Image); err != nil {
		return nil, err
	}
	value, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.To); err != nil {
		return nil, err
	}
	file, err := p.stringLit()
	if err != nil {
		return nil, err
	}
	text := "write image " + value.Source().Text + " to " + file.Text
	return &ast.WriteCmd{
		Src:      ast.Src{Text: text, Line: write.Line, Pos: write.Pos},
		Value:    value,
		FileName: file,
	}, nil
}

func (p *parser) typeCmd() (ast.Command, error) {
	kw, _ := p.expect(token.Type)
	name, err := p.expect(token.Variable)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Equals); err != nil {
		return nil, err
	}
	typ, err := p.typeExpr()
	if err != nil {
		return nil, err
	}
	text := "type " + name.Text + " = " + typ.Source().Text
	return &ast.TypeCmd{
		Src:  ast.Src{Text: text, Line: kw.Line, Pos: kw.Pos},
		Name: name.Text,
		Type: typ,
	}, nil
}

func (p *parser) letCmd() (ast.Command, error) {
	let, _ := p.expect(token.Let)
	lv, err := p.lvalue()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Equals); err != nil {
		return nil, err
	}
	value, err := p.expr()
	if err != nil {
		return nil, err
	}
	text := "let " + lv.Source().Text + " = " + value.Source().Text
	return &ast.LetCmd{
		Src:    ast.Src{Text: text, Line: let.Line, Pos: let.Pos},
		LValue: lv,
		Value:  value,
	}, nil
}

func (p *parser) assertCmd() (ast.Command, error) {
	kw, _ := p.expect(token.Assert)
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Comma); err != nil {
		return nil, err
	}
	msg, err := p.stringLit()
	if err != nil {
		return nil, err
	}
	text := "assert " + cond.Source().Text + " , " + msg.Text
	return &ast.AssertCmd{
		Src:     ast.Src{Text: text, Line: kw.Line, Pos: kw.Pos},
		Cond:    cond,
		Message: msg,
	}, nil
}

func (p *parser) printCmd() (ast.Command, error) {
	kw, _ := p.expect(token.Print)
	msg, err := p.stringLit()
	if err != nil {
		return nil, err
	}
	return &ast.PrintCmd{
		Src:     ast.Src{Text: "print " + msg.Text, Line: kw.Line, Pos: kw.Pos},
		Message: msg,
	}, nil
}

func (p *parser) showCmd() (ast.Command, error) {
	kw, _ := p.expect(token.Show)
	value, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &ast.ShowCmd{
		Src:   ast.Src{Text: "show " + value.Source().Text, Line: kw.Line, Pos: kw.Pos},
		Value: value,
	}, nil
}

func (p *parser) timeCmd() (ast.Command, error) {
	kw, _ := p.expect(token.Time)
	cmd, err := p.command()
	if err != nil {
		return nil, err
	}
	return &ast.TimeCmd{
		Src:     ast.Src{Text: "time " + cmd.Source().Text, Line: kw.Line, Pos: kw.Pos},
		Command: cmd,
	}, nil
}

func (p *parser) fnCmd() (ast.Command, error) {
	kw, _ := p.expect(token.Fn)
	name, err := p.expect(token.Variable)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []ast.Binding
	for p.peek() != token.RParen {
		binding, err := p.binding()
		if err != nil {
			return nil, err
		}
		params = append(params, binding)
		if p.peek() != token.RParen {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
		}
	}
	p.i++ // RParen
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	ret, err := p.typeExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LCurly); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Newline); err != nil {
		return nil, err
	}
	var body []ast.Statement
	for p.peek() != token.RCurly {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
		if _, err := p.expect(token.Newline); err != nil {
			return nil, err
		}
	}
	p.i++ // RCurly
	return &ast.FnCmd{
		Src:        ast.Src{Text: "fn " + name.Text, Line: kw.Line, Pos: kw.Pos},
		Name:       name.Text,
		Params:     params,
		ReturnType: ret,
		Body:       body,
	}, nil
}

func (p *parser) statement() (ast.Statement, error) {
	switch p.peek() {
	case token.Let:
		let, _ := p.expect(token.Let)
		lv, err := p.lvalue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Equals); err != nil {
			return nil, err
		}
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		text := "let " + lv.Source().Text + " = " + value.Source().Text
		return &ast.LetStmt{
			Src:    ast.Src{Text: text, Line: let.Line, Pos: let.Pos},
			LValue: lv,
			Value:  value,
		}, nil
	case token.Assert:
		kw, _ := p.expect(token.Assert)
		cond, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Comma); err != nil {
			return nil, err
		}
		msg, err := p.stringLit()
		if err != nil {
			return nil, err
		}
		text := "assert " + cond.Source().Text + " , " + msg.Text
		return &ast.AssertStmt{
			Src:     ast.Src{Text: text, Line: kw.Line, Pos: kw.Pos},
			Cond:    cond,
			Message: msg,
		}, nil
	case token.Return:
		kw, _ := p.expect(token.Return)
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{
			Src:   ast.Src{Text: "return " + value.Source().Text, Line: kw.Line, Pos: kw.Pos},
			Value: value,
		}, nil
	}
	t := p.at()
	return nil, p.errorf(t, "Failed to parse a statement; got a %s token instead.", t.Kind)
}

func (p *parser) typeExpr() (ast.TypeExpr, error) {
	head, err := p.typeHead()
	if err != nil {
		return nil, err
	}
	return p.typeCont(head)
}

func (p *parser) typeHead() (ast.TypeExpr, error) {
	t := p.at()
	switch t.Kind {
	case token.Int:
		p.i++
		return &ast.IntTypeExpr{Src: src(t)}, nil
	case token.Bool:
		p.i++
		return &ast.BoolTypeExpr{Src: src(t)}, nil
	case token.Float:
		p.i++
		return &ast.FloatTypeExpr{Src: src(t)}, nil
	case token.Variable:
		p.i++
		return &ast.VarTypeExpr{Src: src(t)}, nil
	case token.LCurly:
		p.i++
		var elems []ast.TypeExpr
		text := "{"
		for p.peek() != token.RCurly {
			elem, err := p.typeExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
			text += " " + elem.Source().Text
			if p.peek() != token.RCurly {
				if _, err := p.expect(token.Comma); err != nil {
					return nil, err
				}
				text += ","
			}
		}
		p.i++ // RCurly
		return &ast.TupleTypeExpr{
			Src:   ast.Src{Text: text + "}", Line: t.Line, Pos: t.Pos},
			Elems: elems,
		}, nil
	}
	return nil, p.errorf(t, "Failed to parse a type; got a %s token instead.", t.Kind)
}

// typeCont applies array suffixes ([ , ... ]) to a parsed type head.
func (p *parser) typeCont(head ast.TypeExpr) (ast.TypeExpr, error) {
	for p.peek() == token.LSquare {
		p.i++
		rank := 1
		text := head.Source().Text + "["
		for p.peek() != token.RSquare {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
			rank++
			text += ","
		}
		p.i++ // RSquare
		head = &ast.ArrayTypeExpr{
			Src:  ast.Src{Text: text + "]", Line: head.Source().Line, Pos: head.Source().Pos},
			Elem: head,
			Rank: rank,
		}
	}
	return head, nil
}

func (p *parser) argument() (ast.Argument, error) {
	name, err := p.expect(token.Variable)
	if err != nil {
		return nil, err
	}
	if p.peek() != token.LSquare {
		return &ast.VarArgument{Src: src(name)}, nil
	}
	p.i++
	var dims []string
	text := name.Text + "["
	for p.peek() != token.RSquare {
		dim, err := p.expect(token.Variable)
		if err != nil {
			return nil, err
		}
		dims = append(dims, dim.Text)
		text += " " + dim.Text
		if p.peek() != token.RSquare {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
			text += ","
		}
	}
	p.i++ // RSquare
	return &ast.ArrayArgument{
		Src:  ast.Src{Text: text + " ]", Line: name.Line, Pos: name.Pos},
		Name: name.Text,
		Dims: dims,
	}, nil
}

func (p *parser) lvalue() (ast.LValue, error) {
	if p.peek() != token.LCurly {
		arg, err := p.argument()
		if err != nil {
			return nil, err
		}
		return &ast.ArgLValue{Src: *arg.Source(), Arg: arg}, nil
	}
	open, _ := p.expect(token.LCurly)
	var elems []ast.LValue
	text := "{"
	for p.peek() != token.RCurly {
		elem, err := p.lvalue()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		text += " " + elem.Source().Text
		if p.peek() != token.RCurly {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
			text += ","
		}
	}
	p.i++ // RCurly
	return &ast.TupleLValue{
		Src:   ast.Src{Text: text + " }", Line: open.Line, Pos: open.Pos},
		Elems: elems,
	}, nil
}

func (p *parser) binding() (ast.Binding, error) {
	switch p.peek() {
	case token.Variable:
		arg, err := p.argument()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		typ, err := p.typeExpr()
		if err != nil {
			return nil, err
		}
		text := arg.Source().Text + " : " + typ.Source().Text
		return &ast.VarBinding{
			Src:  ast.Src{Text: text, Line: arg.Source().Line, Pos: arg.Source().Pos},
			Arg:  arg,
			Type: typ,
		}, nil
	case token.LCurly:
		open, _ := p.expect(token.LCurly)
		var elems []ast.Binding
		text := "{"
		for p.peek() != token.RCurly {
			elem, err := p.binding()
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
			text += " " + elem.Source().Text
			if p.peek() != token.RCurly {
				if _, err := p.expect(token.Comma); err != nil {
					return nil, err
				}
				text += ","
			}
		}
		p.i++ // RCurly
		return &ast.TupleBinding{
			Src:   ast.Src{Text: text + " }", Line: open.Line, Pos: open.Pos},
			Elems: elems,
		}, nil
	}
	t := p.at()
	return nil, p.errorf(t, "Failed to parse a binding; got a %s token instead.", t.Kind)
}

func (p *parser) expr() (ast.Expression, error) {
	return p.boolExpr()
}

// binopNode joins two operands under an operator token.
func binopNode(lhs ast.Expression, op token.Token, rhs ast.Expression) (ast.Expression, error) {
	binop, ok := ast.BinopFromText(op.Text)
	if !ok {
		return nil, fmterr.New(fmterr.Parsing, op.Line, op.Pos, "Token Type "+op.Kind.String(),
			errors.Errorf("Could not convert %s as a binary operator.", op.Text))
	}
	text := lhs.Source().Text + " " + op.Text + " " + rhs.Source().Text
	return &ast.BinopExpr{
		ExprBase: ast.ExprBase{Src: ast.Src{Text: text, Line: lhs.Source().Line, Pos: lhs.Source().Pos}},
		Op:       binop,
		LHS:      lhs,
		RHS:      rhs,
	}, nil
}

func (p *parser) boolExpr() (ast.Expression, error) {
	head, err := p.comparisonExpr()
	if err != nil {
		return nil, err
	}
	for p.peek() == token.Op {
		op := p.at()
		if op.Text != "&&" && op.Text != "||" {
			break
		}
		p.i++
		rhs, err := p.comparisonExpr()
		if err != nil {
			return nil, err
		}
		if head, err = binopNode(head, op, rhs); err != nil {
			return nil, err
		}
	}
	return head, nil
}

func (p *parser) comparisonExpr() (ast.Expression, error) {
	head, err := p.addExpr()
	if err != nil {
		return nil, err
	}
	for p.peek() == token.Op {
		op := p.at()
		switch op.Text {
		case "<", "<=", ">", ">=", "==", "!=":
		default:
			return head, nil
		}
		p.i++
		rhs, err := p.addExpr()
		if err != nil {
			return nil, err
		}
		if head, err = binopNode(head, op, rhs); err != nil {
			return nil, err
		}
	}
	return head, nil
}

func (p *parser) addExpr() (ast.Expression, error) {
	head, err := p.multExpr()
	if err != nil {
		return nil, err
	}
	for p.peek() == token.Op {
		op := p.at()
		if op.Text != "+" && op.Text != "-" {
			break
		}
		p.i++
		rhs, err := p.multExpr()
		if err != nil {
			return nil, err
		}
		if head, err = binopNode(head, op, rhs); err != nil {
			return nil, err
		}
	}
	return head, nil
}

func (p *parser) multExpr() (ast.Expression, error) {
	head, err := p.unopExpr()
	if err != nil {
		return nil, err
	}
	for p.peek() == token.Op {
		op := p.at()
		if op.Text != "*" && op.Text != "/" && op.Text != "%" {
			break
		}
		p.i++
		rhs, err := p.unopExpr()
		if err != nil {
			return nil, err
		}
		if head, err = binopNode(head, op, rhs); err != nil {
			return nil, err
		}
	}
	return head, nil
}

func (p *parser) unopExpr() (ast.Expression, error) {
	if p.peek() != token.Op {
		return p.baseExpr()
	}
	op, _ := p.expect(token.Op)
	var unop ast.UnaryOp
	switch op.Text {
	case "-":
		unop = ast.Neg
	case "!":
		unop = ast.Not
	default:
		return nil, p.errorf(op, "Could not recognize %s as a unary operator.", op.Text)
	}
	x, err := p.unopExpr()
	if err != nil {
		return nil, err
	}
	return &ast.UnopExpr{
		ExprBase: ast.ExprBase{Src: ast.Src{Text: op.Text + " " + x.Source().Text, Line: op.Line, Pos: op.Pos}},
		Op:       unop,
		X:        x,
	}, nil
}

func (p *parser) baseExpr() (ast.Expression, error) {
	head, err := p.baseExprHead()
	if err != nil {
		return nil, err
	}
	return p.baseExprCont(head)
}

func (p *parser) baseExprHead() (ast.Expression, error) {
	t := p.at()
	switch t.Kind {
	case token.IntVal:
		p.i++
		v, err := p.parseInt(t)
		if err != nil {
			return nil, err
		}
		return &ast.IntExpr{ExprBase: ast.ExprBase{Src: src(t)}, V: v}, nil
	case token.FloatVal:
		p.i++
		v, err := strconv.ParseFloat(t.Text, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, p.errorf(t, "Float was too big to parse. Tried to parse %s.", t.Text)
		}
		return &ast.FloatExpr{ExprBase: ast.ExprBase{Src: src(t)}, V: v}, nil
	case token.True:
		p.i++
		return &ast.TrueExpr{ExprBase: ast.ExprBase{Src: src(t)}}, nil
	case token.False:
		p.i++
		return &ast.FalseExpr{ExprBase: ast.ExprBase{Src: src(t)}}, nil
	case token.Variable:
		p.i++
		if p.peek() == token.LParen {
			return p.callExpr(t)
		}
		return &ast.VarExpr{ExprBase: ast.ExprBase{Src: src(t)}}, nil
	case token.LParen:
		p.i++
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return e, nil
	case token.LCurly:
		return p.tupleLit()
	case token.LSquare:
		return p.arrayLit()
	case token.If:
		return p.ifExpr()
	case token.Array:
		p.i++
		bounds, boundsText, err := p.loopBounds()
		if err != nil {
			return nil, err
		}
		body, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.ArrayLoopExpr{
			ExprBase: ast.ExprBase{Src: ast.Src{Text: "array" + boundsText + " " + body.Source().Text, Line: t.Line, Pos: t.Pos}},
			Bounds:   bounds,
			Body:     body,
		}, nil
	case token.Sum:
		p.i++
		bounds, boundsText, err := p.loopBounds()
		if err != nil {
			return nil, err
		}
		body, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.SumLoopExpr{
			ExprBase: ast.ExprBase{Src: ast.Src{Text: "sum" + boundsText + " " + body.Source().Text, Line: t.Line, Pos: t.Pos}},
			Bounds:   bounds,
			Body:     body,
		}, nil
	}
	return nil, p.errorf(t, "Failed to parse an expression; got a %s token instead.", t.Kind)
}

// baseExprCont applies postfix tuple and array indexing to a base
// expression.
func (p *parser) baseExprCont(head ast.Expression) (ast.Expression, error) {
	for {
		switch p.peek() {
		case token.LCurly:
			p.i++
			idx, err := p.expect(token.IntVal)
			if err != nil {
				return nil, err
			}
			v, err := p.parseInt(idx)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RCurly); err != nil {
				return nil, err
			}
			text := head.Source().Text + "{ " + idx.Text + " }"
			head = &ast.TupleIndexExpr{
				ExprBase: ast.ExprBase{Src: ast.Src{Text: text, Line: head.Source().Line, Pos: head.Source().Pos}},
				Tuple:    head,
				Index:    v,
			}
		case token.LSquare:
			p.i++
			var indices []ast.Expression
			text := head.Source().Text + "["
			for p.peek() != token.RSquare {
				idx, err := p.expr()
				if err != nil {
					return nil, err
				}
				indices = append(indices, idx)
				text += " " + idx.Source().Text
				if p.peek() != token.RSquare {
					if _, err := p.expect(token.Comma); err != nil {
						return nil, err
					}
					text += ","
				}
			}
			p.i++ // RSquare
			head = &ast.ArrayIndexExpr{
				ExprBase: ast.ExprBase{Src: ast.Src{Text: text + " ]", Line: head.Source().Line, Pos: head.Source().Pos}},
				Array:    head,
				Indices:  indices,
			}
		default:
			return head, nil
		}
	}
}

func (p *parser) callExpr(name token.Token) (ast.Expression, error) {
	p.i++ // LParen
	var args []ast.Expression
	text := name.Text + "("
	for p.peek() != token.RParen {
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		text += " " + arg.Source().Text
		if p.peek() != token.RParen {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
			text += ","
		}
	}
	p.i++ // RParen
	return &ast.CallExpr{
		ExprBase: ast.ExprBase{Src: ast.Src{Text: text + " )", Line: name.Line, Pos: name.Pos}},
		Func:     name.Text,
		Args:     args,
	}, nil
}

func (p *parser) tupleLit() (ast.Expression, error) {
	open, _ := p.expect(token.LCurly)
	var elems []ast.Expression
	text := "{"
	for p.peek() != token.RCurly {
		elem, err := p.expr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		text += " " + elem.Source().Text
		if p.peek() != token.RCurly {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
			text += ","
		}
	}
	p.i++ // RCurly
	return &ast.TupleLitExpr{
		ExprBase: ast.ExprBase{Src: ast.Src{Text: text + " }", Line: open.Line, Pos: open.Pos}},
		Elems:    elems,
	}, nil
}

func (p *parser) arrayLit() (ast.Expression, error) {
	open, _ := p.expect(token.LSquare)
	var elems []ast.Expression
	text := "["
	for p.peek() != token.RSquare {
		elem, err := p.expr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		text += " " + elem.Source().Text
		if p.peek() != token.RSquare {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
			text += ","
		}
	}
	p.i++ // RSquare
	return &ast.ArrayLitExpr{
		ExprBase: ast.ExprBase{Src: ast.Src{Text: text + " ]", Line: open.Line, Pos: open.Pos}},
		Elems:    elems,
	}, nil
}

func (p *parser) ifExpr() (ast.Expression, error) {
	kw, _ := p.expect(token.If)
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Then); err != nil {
		return nil, err
	}
	then, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Else); err != nil {
		return nil, err
	}
	els, err := p.expr()
	if err != nil {
		return nil, err
	}
	text := "if " + cond.Source().Text + " then " + then.Source().Text + " else " + els.Source().Text
	return &ast.IfExpr{
		ExprBase: ast.ExprBase{Src: ast.Src{Text: text, Line: kw.Line, Pos: kw.Pos}},
		Cond:     cond,
		Then:     then,
		Else:     els,
	}, nil
}

// loopBounds parses the [ x : e , ... ] preamble of a comprehension.
// A trailing comma is an error here, unlike in the other comma lists.
func (p *parser) loopBounds() ([]ast.LoopBound, string, error) {
	if _, err := p.expect(token.LSquare); err != nil {
		return nil, "", err
	}
	var bounds []ast.LoopBound
	text := " ["
	for p.peek() != token.RSquare {
		name, err := p.expect(token.Variable)
		if err != nil {
			return nil, "", err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, "", err
		}
		bound, err := p.expr()
		if err != nil {
			return nil, "", err
		}
		bounds = append(bounds, ast.LoopBound{Name: name.Text, Bound: bound})
		text += " " + name.Text + " : " + bound.Source().Text
		if p.peek() != token.RSquare {
			comma, err := p.expect(token.Comma)
			if err != nil {
				return nil, "", err
			}
			text += ","
			if p.peek() == token.RSquare {
				return nil, "", p.errorf(comma, "Trailing comma detected.")
			}
		}
	}
	p.i++ // RSquare
	return bounds, text + " ]", nil
}
