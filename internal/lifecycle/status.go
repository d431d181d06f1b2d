package lifecycle

import (
	"sort"
	"time"

	"autoedit/pkg/types"
)

// Status returns a read-only projection of the manager state for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	handles := make([]types.HandleStatus, 0, len(m.handles))
	for stg, h := range m.handles {
		handles = append(handles, types.HandleStatus{
			Stage:      string(stg),
			ModelID:    h.Model.ID,
			State:      string(h.State),
			LastUsed:   h.LastUsed.Unix(),
			ResidentMB: h.ResidentMB,
		})
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].Stage < handles[j].Stage })

	now := time.Now()
	return types.StatusResponse{
		Handles:        handles,
		BudgetMB:       m.budgetMB,
		UsedMB:         m.usedMB,
		MarginMB:       m.marginMB,
		LastError:      m.lastErr,
		LoadsTotal:     m.loadsTotal,
		OffloadsTotal:  m.offloadsTotal,
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}
