package canvas

// mergeNodes reconciles an authoritative node set into the existing one.
//
// For ids present in both, local position, size, and style survive and the
// payload is taken from incoming only when an authoritative field actually
// differs. Ids present only in incoming are appended as-is; ids missing
// from incoming are dropped. Returns the original slice and changed=false
// when the merge is a no-op, so downstream renders can be skipped.
func mergeNodes(existing, incoming []Node) ([]Node, bool) {
	byID := make(map[string]int, len(existing))
	for i, n := range existing {
		byID[n.ID] = i
	}

	changed := false
	merged := make([]Node, 0, len(incoming))
	for _, in := range incoming {
		idx, ok := byID[in.ID]
		if !ok {
			merged = append(merged, in)
			changed = true
			continue
		}
		cur := existing[idx]
		if dataDiffers(cur.Data, in.Data) {
			cur.Data = in.Data
			changed = true
		}
		if cur.Kind != in.Kind {
			cur.Kind = in.Kind
			changed = true
		}
		merged = append(merged, cur)
	}

	if !changed {
		if len(merged) != len(existing) {
			return merged, true
		}
		for i := range merged {
			if merged[i].ID != existing[i].ID {
				return merged, true
			}
		}
		return existing, false
	}
	return merged, true
}

// edgeSetEqual compares two edge lists by id, ignoring order.
func edgeSetEqual(a, b []Edge) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[string]struct{}, len(a))
	for _, e := range a {
		ids[e.ID] = struct{}{}
	}
	for _, e := range b {
		if _, ok := ids[e.ID]; !ok {
			return false
		}
	}
	return true
}

// dataDiffers compares the server-owned payload fields. Omits nothing the
// backend can change between polls: execution state, naming, configuration,
// and result metadata all count.
func dataDiffers(a, b NodeData) bool {
	if a.Name != b.Name ||
		a.Status != b.Status ||
		a.Summary != b.Summary ||
		a.ErrorMessage != b.ErrorMessage ||
		a.OutputTable != b.OutputTable ||
		a.RowCount != b.RowCount ||
		a.Prompt != b.Prompt ||
		a.JoinType != b.JoinType ||
		a.AnalysisType != b.AnalysisType ||
		a.TextColumn != b.TextColumn ||
		a.GroupColumn != b.GroupColumn ||
		a.SourceRef != b.SourceRef ||
		a.LeftRef != b.LeftRef ||
		a.RightRef != b.RightRef ||
		a.RecordsProcessed != b.RecordsProcessed ||
		a.ExecutionTimeMS != b.ExecutionTimeMS {
		return true
	}
	if len(a.Columns) != len(b.Columns) {
		return true
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return true
		}
	}
	if len(a.Upstream) != len(b.Upstream) {
		return true
	}
	for i := range a.Upstream {
		if a.Upstream[i] != b.Upstream[i] {
			return true
		}
	}
	if len(a.JoinKeys) != len(b.JoinKeys) {
		return true
	}
	for i := range a.JoinKeys {
		if a.JoinKeys[i] != b.JoinKeys[i] {
			return true
		}
	}
	return false
}
