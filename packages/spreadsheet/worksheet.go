package spreadsheet

import (
	"cmp"
	"fmt"
	"iter"
	"math/bits"
	"slices"
	"strings"
)

// maxSheetNameLength is the longest sheet name Excel accepts.
const maxSheetNameLength = 31

// WorksheetTable manages worksheet storage, ID mappings and sheet order.
// sheet names are matched case-insensitively.
type WorksheetTable struct {
	nameToID   map[string]uint32     // folded name -> ID
	idToName   map[uint32]string     // ID -> name as the user typed it
	worksheets map[uint32]*Worksheet // ID -> worksheet
	order      []uint32              // sheet index -> ID
	nextID     uint32
}

// NewWorksheetTable creates a new worksheet table
func NewWorksheetTable() *WorksheetTable {
	return &WorksheetTable{
		nameToID:   make(map[string]uint32),
		idToName:   make(map[uint32]string),
		worksheets: make(map[uint32]*Worksheet),
		nextID:     1, // start at 1, reserve 0 for no worksheet
	}
}

func foldName(name string) string {
	return strings.ToUpper(name)
}

func validateSheetName(name string) error {
	if name == "" {
		return NewApplicationError(InvalidArgument, "sheet name must not be empty")
	}
	if len([]rune(name)) > maxSheetNameLength {
		return NewApplicationError(InvalidArgument,
			fmt.Sprintf("sheet name %q is longer than %d characters", name, maxSheetNameLength))
	}
	if strings.ContainsAny(name, `[]:*?/\`) {
		return NewApplicationError(InvalidArgument,
			fmt.Sprintf("sheet name %q contains an invalid character", name))
	}
	if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return NewApplicationError(InvalidArgument,
			fmt.Sprintf("sheet name %q must not start or end with an apostrophe", name))
	}
	return nil
}

// Define adds a worksheet at the end of the sheet order.
func (wt *WorksheetTable) Define(name string, storage *Storage) (*Worksheet, error) {
	if err := validateSheetName(name); err != nil {
		return nil, err
	}
	if _, exists := wt.nameToID[foldName(name)]; exists {
		return nil, NewApplicationError(AlreadyExists, fmt.Sprintf("sheet %q already exists", name))
	}

	id := wt.nextID
	wt.nextID++

	worksheet := &Worksheet{
		chunks:      make(map[ChunkKey]*Chunk),
		storage:     storage,
		table:       wt,
		worksheetID: id,
	}
	wt.nameToID[foldName(name)] = id
	wt.idToName[id] = name
	wt.worksheets[id] = worksheet
	wt.order = append(wt.order, id)

	return worksheet, nil
}

// Remove deletes a worksheet. the ID is never handed out again.
func (wt *WorksheetTable) Remove(id uint32) bool {
	name, exists := wt.idToName[id]
	if !exists {
		return false
	}
	delete(wt.nameToID, foldName(name))
	delete(wt.idToName, id)
	delete(wt.worksheets, id)
	wt.order = slices.DeleteFunc(wt.order, func(other uint32) bool { return other == id })
	return true
}

// Rename changes a worksheet's name. changing only the case of a name is
// allowed.
func (wt *WorksheetTable) Rename(id uint32, newName string) error {
	oldName, exists := wt.idToName[id]
	if !exists {
		return NewApplicationError(NotFound, fmt.Sprintf("worksheet %d not found", id))
	}
	if err := validateSheetName(newName); err != nil {
		return err
	}
	if other, taken := wt.nameToID[foldName(newName)]; taken && other != id {
		return NewApplicationError(AlreadyExists, fmt.Sprintf("sheet %q already exists", newName))
	}
	delete(wt.nameToID, foldName(oldName))
	wt.nameToID[foldName(newName)] = id
	wt.idToName[id] = newName
	return nil
}

// Move places a worksheet at the given sheet index.
func (wt *WorksheetTable) Move(id uint32, pos int) error {
	from := wt.Index(id)
	if from < 0 {
		return NewApplicationError(NotFound, fmt.Sprintf("worksheet %d not found", id))
	}
	if pos < 0 || pos >= len(wt.order) {
		return NewApplicationError(OutOfRange,
			fmt.Sprintf("sheet position %d out of range [0, %d)", pos, len(wt.order)))
	}
	wt.order = slices.Delete(wt.order, from, from+1)
	wt.order = slices.Insert(wt.order, pos, id)
	return nil
}

// ID returns the ID for a worksheet name
func (wt *WorksheetTable) ID(name string) (uint32, bool) {
	id, exists := wt.nameToID[foldName(name)]
	return id, exists
}

// Name returns the name for a worksheet ID
func (wt *WorksheetTable) Name(id uint32) (string, bool) {
	name, exists := wt.idToName[id]
	return name, exists
}

// Get returns the Worksheet for a given ID
func (wt *WorksheetTable) Get(id uint32) (*Worksheet, bool) {
	worksheet, exists := wt.worksheets[id]
	return worksheet, exists
}

// Index returns the position of a worksheet in the sheet order, or -1.
func (wt *WorksheetTable) Index(id uint32) int {
	return slices.Index(wt.order, id)
}

// At returns the worksheet at a sheet index
func (wt *WorksheetTable) At(index int) (*Worksheet, bool) {
	if index < 0 || index >= len(wt.order) {
		return nil, false
	}
	return wt.Get(wt.order[index])
}

// Count returns the number of worksheets
func (wt *WorksheetTable) Count() int {
	return len(wt.order)
}

// ChunkKey represents the key for indexing chunks in Worksheet
type ChunkKey struct {
	ChunkRow uint32
	ChunkCol uint32
}

// Worksheet provides high-performance sparse spreadsheet
// storage optimized for typical spreadsheet access patterns.
//
// architecture:
// - cells are partitioned into 256x256 chunks for spatial locality
// - each chunk allocates arrays lazily based on actual cell types present
// - string deduplication via StringTable reduces memory for repeated text
// - formula text is interned in the workbook's FormulaTable
//
// performance characteristics:
// - O(1) cell access within loaded chunks
// - memory allocated only for non-empty regions
// - optimized for spreadsheets with clustered data (typical use case)
// - chunk granularity balances memory usage vs allocation overhead
type Worksheet struct {
	chunks      map[ChunkKey]*Chunk // sparse map of chunks indexed by ChunkKey
	totalCells  int                 // stats tracking total number of cells
	cellsByType [8]uint32           // cells by type for diagnostic use
	storage     *Storage            // tables shared with the rest of the workbook
	table       *WorksheetTable     // owning table, for the sheet name
	worksheetID uint32              // stable worksheet identity
}

const (
	ChunkRows uint32 = 256                   // rows per chunk - power of 2 for efficient modulo
	ChunkCols uint32 = 256                   // columns per chunk - matches typical viewport size
	ChunkSize        = ChunkRows * ChunkCols // 65536 cells per chunk
)

// Chunk represents a 256x256 region of cells using structure-of-arrays layout
// for cache efficiency and minimal memory overhead. arrays are allocated
// lazily - only Types and OccupiedBitmap exist initially.
type Chunk struct {
	// always allocated fields.

	Types          []uint8  // CellType for each position, CellTypeNone when unoccupied
	NonEmptyCount  int      // count of occupied cells
	OccupiedBitmap []uint64 // bit-packed array tracking which cells are occupied

	// lazily allocated fields.

	Numbers                []float64 // NUMERIC values, BOOLEAN as 0/1, ERROR codes (lazy)
	StringIDs              []uint32  // interned string IDs for STRING cells (lazy)
	FormulaIDs             []uint32  // formula table IDs for FORMULA cells (lazy)
	FormulaResultTypes     []uint8   // cached result types for FORMULA cells (lazy)
	FormulaResultNumbers   []float64 // cached numeric/boolean/error results (lazy)
	FormulaResultStringIDs []uint32  // cached string results (lazy)
}

// ID returns the stable identity of the worksheet.
func (w *Worksheet) ID() uint32 {
	return w.worksheetID
}

// Name returns the current sheet name, or "" once the sheet was removed.
func (w *Worksheet) Name() string {
	name, _ := w.table.Name(w.worksheetID)
	return name
}

// locate finds the chunk and slot of a position without allocating.
func (w *Worksheet) locate(row, col uint32) (*Chunk, uint32) {
	key := ChunkKey{ChunkRow: row / ChunkRows, ChunkCol: col / ChunkCols}
	chunk, exists := w.chunks[key]
	if !exists {
		return nil, 0
	}
	// column-first indexing for better cache locality
	return chunk, (col%ChunkCols)*ChunkRows + row%ChunkRows
}

// getChunk retrieves or creates a chunk at the given chunk coordinates
func (w *Worksheet) getChunk(chunkRow, chunkCol uint32) *Chunk {
	key := ChunkKey{ChunkRow: chunkRow, ChunkCol: chunkCol}
	chunk, exists := w.chunks[key]
	if !exists {
		chunk = &Chunk{
			Types:          make([]uint8, ChunkSize),
			OccupiedBitmap: make([]uint64, (ChunkSize+63)/64), // bit-packed, 64 bits per word
		}
		w.chunks[key] = chunk
	}
	return chunk
}

// Cell returns a handle for an occupied position, or nil.
func (w *Worksheet) Cell(row, col uint32) *Cell {
	if w.typeAt(row, col) == CellTypeNone {
		return nil
	}
	return &Cell{worksheet: w, row: row, col: col}
}

// CreateCell returns the cell at a position, creating a blank one if the
// position is unoccupied.
func (w *Worksheet) CreateCell(row, col uint32) *Cell {
	if w.typeAt(row, col) == CellTypeNone {
		chunk := w.getChunk(row/ChunkRows, col/ChunkCols)
		idx := (col%ChunkCols)*ChunkRows + row%ChunkRows
		w.setType(chunk, idx, CellTypeBlank)
	}
	return &Cell{worksheet: w, row: row, col: col}
}

// RemoveCell removes a cell at the given row and column
func (w *Worksheet) RemoveCell(row, col uint32) {
	chunk, idx := w.locate(row, col)
	if chunk == nil || chunk.Types[idx] == uint8(CellTypeNone) {
		return
	}

	w.clearSlot(chunk, idx, row, col)
	w.setType(chunk, idx, CellTypeNone)

	if chunk.NonEmptyCount == 0 {
		delete(w.chunks, ChunkKey{ChunkRow: row / ChunkRows, ChunkCol: col / ChunkCols})
	}
}

// setType records a slot's type and keeps the occupancy bookkeeping in step.
func (w *Worksheet) setType(chunk *Chunk, idx uint32, t CellType) {
	oldType := CellType(chunk.Types[idx])
	if oldType == t {
		return
	}
	chunk.Types[idx] = uint8(t)

	wasEmpty := oldType == CellTypeNone
	isEmpty := t == CellTypeNone
	switch {
	case wasEmpty && !isEmpty:
		chunk.NonEmptyCount++
		w.totalCells++
		chunk.OccupiedBitmap[idx/64] |= 1 << (idx % 64)
	case !wasEmpty && isEmpty:
		chunk.NonEmptyCount--
		w.totalCells--
		chunk.OccupiedBitmap[idx/64] &^= 1 << (idx % 64)
	}

	if int(oldType) < len(w.cellsByType) && w.cellsByType[oldType] > 0 {
		w.cellsByType[oldType]--
	}
	if int(t) < len(w.cellsByType) {
		w.cellsByType[t]++
	}
}

// clearSlot releases every shared-table reference a slot holds and zeroes
// its values. the type is left alone.
func (w *Worksheet) clearSlot(chunk *Chunk, idx uint32, row, col uint32) {
	if chunk.StringIDs != nil && chunk.StringIDs[idx] != 0 {
		w.storage.strings.Release(chunk.StringIDs[idx])
		chunk.StringIDs[idx] = 0
	}
	if chunk.FormulaIDs != nil && chunk.FormulaIDs[idx] != 0 {
		cellAddr := CellAddress{WorksheetID: w.worksheetID, Row: row, Column: col}
		w.storage.formulas.Release(chunk.FormulaIDs[idx], cellAddr)
		chunk.FormulaIDs[idx] = 0
	}
	w.clearResult(chunk, idx)
	if chunk.Numbers != nil {
		chunk.Numbers[idx] = 0
	}
}

func (w *Worksheet) clearResult(chunk *Chunk, idx uint32) {
	if chunk.FormulaResultStringIDs != nil && chunk.FormulaResultStringIDs[idx] != 0 {
		w.storage.strings.Release(chunk.FormulaResultStringIDs[idx])
		chunk.FormulaResultStringIDs[idx] = 0
	}
	if chunk.FormulaResultTypes != nil {
		chunk.FormulaResultTypes[idx] = uint8(CellTypeNone)
	}
	if chunk.FormulaResultNumbers != nil {
		chunk.FormulaResultNumbers[idx] = 0
	}
}

// setValue replaces whatever a position holds with a plain value, dropping
// any formula.
func (w *Worksheet) setValue(row, col uint32, t CellType, num float64, str string) {
	chunk := w.getChunk(row/ChunkRows, col/ChunkCols)
	idx := (col%ChunkCols)*ChunkRows + row%ChunkRows

	w.clearSlot(chunk, idx, row, col)

	switch t {
	case CellTypeNumeric, CellTypeBoolean, CellTypeError:
		if chunk.Numbers == nil {
			chunk.Numbers = make([]float64, ChunkSize)
		}
		chunk.Numbers[idx] = num
	case CellTypeString:
		if chunk.StringIDs == nil {
			chunk.StringIDs = make([]uint32, ChunkSize)
		}
		chunk.StringIDs[idx] = w.storage.strings.Intern(str)
	}

	w.setType(chunk, idx, t)
}

// setFormula makes a position a formula cell. the cached result is reset.
func (w *Worksheet) setFormula(row, col uint32, text string) {
	chunk := w.getChunk(row/ChunkRows, col/ChunkCols)
	idx := (col%ChunkCols)*ChunkRows + row%ChunkRows

	if chunk.FormulaIDs == nil {
		chunk.FormulaIDs = make([]uint32, ChunkSize)
	}
	// Intern swaps out a previous formula of this cell itself, so only the
	// value side of the slot is cleared here
	chunk.FormulaIDs[idx] = 0
	w.clearSlot(chunk, idx, row, col)

	cellAddr := CellAddress{WorksheetID: w.worksheetID, Row: row, Column: col}
	chunk.FormulaIDs[idx] = w.storage.formulas.Intern(text, cellAddr)
	w.setType(chunk, idx, CellTypeFormula)
}

// setResult stores the cached result of a formula cell.
func (w *Worksheet) setResult(row, col uint32, t CellType, num float64, str string) {
	chunk, idx := w.locate(row, col)
	if chunk == nil || CellType(chunk.Types[idx]) != CellTypeFormula {
		return
	}

	w.clearResult(chunk, idx)
	if chunk.FormulaResultTypes == nil {
		chunk.FormulaResultTypes = make([]uint8, ChunkSize)
	}
	chunk.FormulaResultTypes[idx] = uint8(t)

	switch t {
	case CellTypeNumeric, CellTypeBoolean, CellTypeError:
		if chunk.FormulaResultNumbers == nil {
			chunk.FormulaResultNumbers = make([]float64, ChunkSize)
		}
		chunk.FormulaResultNumbers[idx] = num
	case CellTypeString:
		if chunk.FormulaResultStringIDs == nil {
			chunk.FormulaResultStringIDs = make([]uint32, ChunkSize)
		}
		chunk.FormulaResultStringIDs[idx] = w.storage.strings.Intern(str)
	}
}

func (w *Worksheet) typeAt(row, col uint32) CellType {
	chunk, idx := w.locate(row, col)
	if chunk == nil {
		return CellTypeNone
	}
	return CellType(chunk.Types[idx])
}

func (w *Worksheet) numberAt(row, col uint32) float64 {
	chunk, idx := w.locate(row, col)
	if chunk == nil || chunk.Numbers == nil {
		return 0
	}
	return chunk.Numbers[idx]
}

func (w *Worksheet) stringAt(row, col uint32) string {
	chunk, idx := w.locate(row, col)
	if chunk == nil || chunk.StringIDs == nil {
		return ""
	}
	s, _ := w.storage.strings.GetString(chunk.StringIDs[idx])
	return s
}

func (w *Worksheet) formulaAt(row, col uint32) string {
	chunk, idx := w.locate(row, col)
	if chunk == nil || chunk.FormulaIDs == nil {
		return ""
	}
	text, _ := w.storage.formulas.Text(chunk.FormulaIDs[idx])
	return text
}

func (w *Worksheet) resultTypeAt(row, col uint32) CellType {
	chunk, idx := w.locate(row, col)
	if chunk == nil || chunk.FormulaResultTypes == nil {
		return CellTypeNone
	}
	return CellType(chunk.FormulaResultTypes[idx])
}

func (w *Worksheet) resultNumberAt(row, col uint32) float64 {
	chunk, idx := w.locate(row, col)
	if chunk == nil || chunk.FormulaResultNumbers == nil {
		return 0
	}
	return chunk.FormulaResultNumbers[idx]
}

func (w *Worksheet) resultStringAt(row, col uint32) string {
	chunk, idx := w.locate(row, col)
	if chunk == nil || chunk.FormulaResultStringIDs == nil {
		return ""
	}
	s, _ := w.storage.strings.GetString(chunk.FormulaResultStringIDs[idx])
	return s
}

// occupied lists every occupied position in row-major order.
func (w *Worksheet) occupied() []CellAddress {
	addrs := make([]CellAddress, 0, w.totalCells)
	for key, chunk := range w.chunks {
		for word, bitsSet := range chunk.OccupiedBitmap {
			for bitsSet != 0 {
				idx := uint32(word*64 + bits.TrailingZeros64(bitsSet))
				bitsSet &= bitsSet - 1
				addrs = append(addrs, CellAddress{
					WorksheetID: w.worksheetID,
					Row:         key.ChunkRow*ChunkRows + idx%ChunkRows,
					Column:      key.ChunkCol*ChunkCols + idx/ChunkRows,
				})
			}
		}
	}
	slices.SortFunc(addrs, func(a, b CellAddress) int {
		if a.Row != b.Row {
			return cmp.Compare(a.Row, b.Row)
		}
		return cmp.Compare(a.Column, b.Column)
	})
	return addrs
}

// Row is one row of occupied cells, as produced by Worksheet.Rows.
type Row struct {
	worksheet *Worksheet
	index     uint32
	columns   []uint32
}

// Index returns the zero-based row index.
func (r *Row) Index() uint32 {
	return r.index
}

// Len returns the number of occupied cells in the row when it was enumerated.
func (r *Row) Len() int {
	return len(r.columns)
}

// Cells yields the row's cells in column order. positions removed since
// enumeration are skipped.
func (r *Row) Cells() iter.Seq[*Cell] {
	return func(yield func(*Cell) bool) {
		for _, col := range r.columns {
			cell := r.worksheet.Cell(r.index, col)
			if cell == nil {
				continue
			}
			if !yield(cell) {
				return
			}
		}
	}
}

// Rows yields every row that has at least one occupied cell, in row order.
// the set of positions is captured when iteration starts.
func (w *Worksheet) Rows() iter.Seq[*Row] {
	return func(yield func(*Row) bool) {
		addrs := w.occupied()
		for start := 0; start < len(addrs); {
			end := start
			row := &Row{worksheet: w, index: addrs[start].Row}
			for end < len(addrs) && addrs[end].Row == row.index {
				row.columns = append(row.columns, addrs[end].Column)
				end++
			}
			if !yield(row) {
				return
			}
			start = end
		}
	}
}

// LastRowNum returns the index of the last row with an occupied cell, or -1
// for an empty sheet.
func (w *Worksheet) LastRowNum() int {
	last := -1
	for key, chunk := range w.chunks {
		if chunk.NonEmptyCount == 0 {
			continue
		}
		base := key.ChunkRow * ChunkRows
		if int(base+ChunkRows-1) <= last {
			continue
		}
		for word, bitsSet := range chunk.OccupiedBitmap {
			for bitsSet != 0 {
				idx := uint32(word*64 + bits.TrailingZeros64(bitsSet))
				bitsSet &= bitsSet - 1
				if row := int(base + idx%ChunkRows); row > last {
					last = row
				}
			}
		}
	}
	return last
}

// CellCount returns the number of occupied cells
func (w *Worksheet) CellCount() int {
	return w.totalCells
}

// CellTypeCount returns the count of cells of a specific type
func (w *Worksheet) CellTypeCount(cellType CellType) uint32 {
	if int(cellType) < len(w.cellsByType) {
		return w.cellsByType[cellType]
	}
	return 0
}

// release drops every shared-table reference the worksheet holds. used when
// the sheet is removed from its workbook.
func (w *Worksheet) release() {
	for _, addr := range w.occupied() {
		chunk, idx := w.locate(addr.Row, addr.Column)
		w.clearSlot(chunk, idx, addr.Row, addr.Column)
	}
	w.storage.formulas.ReleaseWorksheet(w.worksheetID)
}
