package xzra

import "github.com/discochess/xzra/internal/index"

// Cursor iterates over the non-empty blocks of a file in order:
//
//	c := r.Blocks()
//	for c.Next() {
//	    b := c.Block()
//	    ...
//	}
type Cursor struct {
	r *Reader
	c *index.Cursor
}

// Next advances to the next non-empty block. It returns false when the
// blocks are exhausted.
func (c *Cursor) Next() bool {
	return c.c.Next()
}

// Block returns the current block. Call it only after Next returned true.
func (c *Cursor) Block() Block {
	return Block{r: c.r, b: c.c.Block()}
}
