package entity

const (
	cellEmpty byte = 0
	cellX     byte = 1
	cellO     byte = 2

	cellMask byte = 0b11
	cellBits      = 2
)

// Board - grid of cells packed two bits per cell.
type Board struct {
	rows  int
	cols  int
	cells []byte
}

func NewBoard(rows, cols int) *Board {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}

	return &Board{
		rows:  rows,
		cols:  cols,
		cells: make([]byte, (rows*cols*cellBits+7)/8),
	}
}

func (that *Board) Rows() int {
	return that.rows
}

func (that *Board) Cols() int {
	return that.cols
}

// Valid - reports whether (x, y) lies on the board.
func (that *Board) Valid(x, y int) bool {
	return x >= 0 && x < that.cols && y >= 0 && y < that.rows
}

// Get - returns the mark at (x, y), SignNone outside the board.
func (that *Board) Get(x, y int) Sign {
	if !that.Valid(x, y) {
		return SignNone
	}

	bit := (x + y*that.cols) * cellBits

	switch (that.cells[bit/8] >> (bit % 8)) & cellMask {
	case cellX:
		return SignX
	case cellO:
		return SignO
	default:
		return SignNone
	}
}

// Set - writes a mark at (x, y). Writes outside the board are ignored.
func (that *Board) Set(x, y int, sign Sign) {
	if !that.Valid(x, y) {
		return
	}

	bit := (x + y*that.cols) * cellBits
	offset := bit % 8

	cell := &that.cells[bit/8]
	*cell &^= cellMask << offset

	switch sign {
	case SignX:
		*cell |= cellX << offset
	case SignO:
		*cell |= cellO << offset
	}
}

func (that *Board) Reset() {
	clear(that.cells)
}
