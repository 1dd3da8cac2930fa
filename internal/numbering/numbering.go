// Package numbering issues human-facing document numbers such as
// INV-1823749338457 and QT-1823749338458.
package numbering

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	InvoicePrefix   = "INV"
	QuotationPrefix = "QT"
)

// Generator mints unique, roughly time-ordered numbers. Each API or worker
// process needs its own node id.
type Generator struct {
	node *snowflake.Node
}

// New returns a Generator for nodeID, which must be within [0, 1023].
func New(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("numbering: node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

// Next returns "<prefix>-<id>".
func (g *Generator) Next(prefix string) string {
	return Format(prefix, g.node.Generate().Int64())
}

// Invoice returns a fresh invoice number.
func (g *Generator) Invoice() string { return g.Next(InvoicePrefix) }

// Quotation returns a fresh quotation number.
func (g *Generator) Quotation() string { return g.Next(QuotationPrefix) }

// Format builds "<prefix>-<id>" from a row id or snowflake.
func Format(prefix string, id int64) string {
	return fmt.Sprintf("%s-%d", strings.ToUpper(prefix), id)
}

// OrDefault returns number when it is non-blank, else a fresh one.
func (g *Generator) OrDefault(number, prefix string) string {
	if n := strings.TrimSpace(number); n != "" {
		return n
	}
	return g.Next(prefix)
}
