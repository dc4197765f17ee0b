package editor

import "time"

// SetClock reemplaza el reloj del gestor en tests.
func (m *SessionManager) SetClock(now func() time.Time) { m.now = now }
