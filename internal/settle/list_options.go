package settle

// SortOrder defines how results should be ordered when listing records.
type SortOrder int

const (
	// SortByCreatedDesc orders records by CreatedAt descending (most recent first).
	SortByCreatedDesc SortOrder = iota
	// SortByCreatedAsc orders records by CreatedAt ascending (oldest first).
	SortByCreatedAsc
)

// ListOptions controls how records are selected when querying the store.
type ListOptions struct {
	Limit      int
	Offset     int
	RoleID     string
	Statuses   []Status
	CreatedGTE int64
	CreatedLTE int64
	Order      SortOrder
}

// applyDefaults sanitizes the options and fills in default values.
func (opts *ListOptions) applyDefaults() {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if len(opts.Statuses) > 0 {
		opts.Statuses = normalizeStatuses(opts.Statuses)
	}
	if opts.Order != SortByCreatedAsc {
		opts.Order = SortByCreatedDesc
	}
}

func normalizeStatuses(input []Status) []Status {
	seen := make(map[Status]struct{}, len(input))
	result := make([]Status, 0, len(input))
	for _, status := range input {
		if !IsValidStatus(status) {
			continue
		}
		if _, ok := seen[status]; ok {
			continue
		}
		seen[status] = struct{}{}
		result = append(result, status)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func matchesListFilters(record *Record, opts ListOptions) bool {
	if opts.RoleID != "" && record.RoleID != opts.RoleID {
		return false
	}
	if len(opts.Statuses) > 0 {
		matched := false
		for _, status := range opts.Statuses {
			if record.Status == status {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if opts.CreatedGTE > 0 && record.CreatedAt < opts.CreatedGTE {
		return false
	}
	if opts.CreatedLTE > 0 && record.CreatedAt > opts.CreatedLTE {
		return false
	}
	return true
}
