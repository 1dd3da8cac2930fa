package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// shopGuard parses store.go files and checks that every SELECT, UPDATE and
// DELETE touching a per-shop table is filtered by shop_id.
// Exit code 0 = ok, 1 = violation, 2 = other error.
func main() {
	root := flag.String("root", "internal", "directory holding the store packages")
	flag.Parse()

	deny, err := scan(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shop_guard error: %v\n", err)
		os.Exit(2)
	}
	if len(deny) > 0 {
		for _, v := range deny {
			fmt.Fprintf(os.Stderr, "VIOLATION: %s\n", v)
		}
		os.Exit(1)
	}
	fmt.Println("shop_guard: OK")
}

var (
	reStatement = regexp.MustCompile(`(?is)^\s*(select|update|delete)\b`)
	reTable     = regexp.MustCompile(`(?i)\b(?:from|update)\s+(customers|products|invoices|quotations)\b`)
	reShop      = regexp.MustCompile(`(?i)shop_id\s*=\s*\$[0-9]+`)
)

var queryMethods = map[string]bool{"Query": true, "QueryRow": true, "Exec": true, "Queue": true}

func scan(dir string) ([]string, error) {
	var violations []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Base(path) != "store.go" {
			return nil
		}
		found, err := checkFile(path)
		if err != nil {
			return err
		}
		violations = append(violations, found...)
		return nil
	})
	return violations, err
}

func checkFile(path string) ([]string, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, err
	}
	var violations []string
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || !queryMethods[sel.Sel.Name] {
			return true
		}
		for _, arg := range call.Args {
			sql := literalText(arg)
			if sql == "" {
				continue
			}
			if !unscoped(sql) {
				break
			}
			violations = append(violations, fmt.Sprintf("%s: %s", fset.Position(call.Pos()), firstLine(sql)))
			break
		}
		return true
	})
	return violations, nil
}

// unscoped reports whether sql reads or writes a per-shop table without a
// shop_id predicate.
func unscoped(sql string) bool {
	return reStatement.MatchString(sql) && reTable.MatchString(sql) && !reShop.MatchString(sql)
}

// literalText joins the string literals of a + chain. Identifiers such as
// column lists are skipped.
func literalText(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.BasicLit:
		if v.Kind != token.STRING {
			return ""
		}
		s, err := strconv.Unquote(v.Value)
		if err != nil {
			return ""
		}
		return s
	case *ast.BinaryExpr:
		if v.Op != token.ADD {
			return ""
		}
		left, right := literalText(v.X), literalText(v.Y)
		if left == "" && right == "" {
			return ""
		}
		return left + " " + right
	case *ast.ParenExpr:
		return literalText(v.X)
	}
	return ""
}

func firstLine(sql string) string {
	sql = strings.TrimSpace(sql)
	if i := strings.IndexByte(sql, '\n'); i >= 0 {
		return sql[:i]
	}
	return sql
}
