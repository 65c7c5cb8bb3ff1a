package spreadsheet

// StringTable provides string interning for efficient string storage with
// reference counting. cell text and cached string results of one workbook
// share a table.
type StringTable struct {
	strings    map[string]uint32
	reverseMap map[uint32]string
	refCounts  map[uint32]int // reference count for each string ID
	nextID     uint32
}

// NewStringTable creates a new string table
func NewStringTable() *StringTable {
	return &StringTable{
		strings:    make(map[string]uint32),
		reverseMap: make(map[uint32]string),
		refCounts:  make(map[uint32]int),
		nextID:     1, // start at 1, reserve 0 for "no string"
	}
}

// Intern adds a string to the table or increments its reference count if
// it already exists. returns the ID of the string.
func (st *StringTable) Intern(s string) uint32 {
	if id, exists := st.strings[s]; exists {
		st.refCounts[id]++
		return id
	}

	id := st.nextID
	st.strings[s] = id
	st.reverseMap[id] = s
	st.refCounts[id] = 1
	st.nextID++

	return id
}

// GetString retrieves a string by its ID. ID 0 is the empty string.
func (st *StringTable) GetString(id uint32) (string, bool) {
	if id == 0 {
		return "", true
	}
	s, exists := st.reverseMap[id]
	return s, exists
}

// Release drops one reference to a string ID. when the count reaches 0 the
// string is removed from the table. returns true if the string was removed.
func (st *StringTable) Release(id uint32) bool {
	s, exists := st.reverseMap[id]
	if !exists {
		return false
	}

	st.refCounts[id]--
	if st.refCounts[id] <= 0 {
		delete(st.strings, s)
		delete(st.reverseMap, id)
		delete(st.refCounts, id)
		return true
	}

	return false
}

// ReferenceCount returns the reference count for a string ID
func (st *StringTable) ReferenceCount(id uint32) int {
	return st.refCounts[id]
}

// Count returns the number of unique strings in the table
func (st *StringTable) Count() int {
	return len(st.strings)
}
