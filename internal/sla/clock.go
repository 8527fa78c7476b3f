package sla

import (
	"time"

	"github.com/voltdesk/maintenance-service/internal/domain"
)

// Start initializes a measurement from the resolved policy. Targets and pause
// statuses are copied so later policy edits never touch a running clock.
func Start(m *domain.SlaMeasurement, policy *domain.SlaPolicy, now time.Time) {
	now = now.UTC()
	m.PolicyID = policy.ID
	m.StartedAt = now
	m.ResponseDeadline = now.Add(time.Duration(policy.ResponseTargetMinutes) * time.Minute)
	m.ResolutionDeadline = now.Add(time.Duration(policy.ResolutionTargetMinutes) * time.Minute)
	m.PauseStatuses = append([]domain.TicketStatus(nil), policy.PauseStatuses...)
	m.PauseStartedAt = nil
	m.PausedTotal = 0
}

// Pause stops the clock. No-op if already paused.
func Pause(m *domain.SlaMeasurement, now time.Time) {
	if m.IsPaused() {
		return
	}
	now = now.UTC()
	m.PauseStartedAt = &now
}

// Resume restarts the clock, accumulating the pause into PausedTotal and
// shifting both deadlines forward by the pause duration. No-op if not paused.
func Resume(m *domain.SlaMeasurement, now time.Time) {
	if !m.IsPaused() {
		return
	}
	paused := now.UTC().Sub(*m.PauseStartedAt)
	if paused < 0 {
		paused = 0
	}
	m.PausedTotal += paused
	m.PauseStartedAt = nil
	m.ResponseDeadline = m.ResponseDeadline.Add(paused)
	m.ResolutionDeadline = m.ResolutionDeadline.Add(paused)
}

// EffectiveElapsed is the time on the clock: wall time since start minus all
// paused time, including an in-flight pause.
func EffectiveElapsed(m *domain.SlaMeasurement, now time.Time) time.Duration {
	now = now.UTC()
	elapsed := now.Sub(m.StartedAt) - m.PausedTotal
	if m.IsPaused() {
		elapsed -= now.Sub(*m.PauseStartedAt)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// MarkFirstResponse records the first public response if none exists yet and
// flags a response breach when it landed past the deadline. Both effects are
// monotonic.
func MarkFirstResponse(m *domain.SlaMeasurement, now time.Time) {
	if m.FirstResponseAt != nil {
		return
	}
	now = now.UTC()
	m.FirstResponseAt = &now
	if now.After(effectiveDeadline(m.ResponseDeadline, m, now)) {
		m.ResponseBreached = true
	}
}

// CheckBreach evaluates the measurement against its targets and reports
// whether the resolution breach flag was newly set. The check is a pure
// function of (measurement, now), so the lazy path on reads and the periodic
// scanner produce identical results. Breach flags are never cleared here.
func CheckBreach(m *domain.SlaMeasurement, now time.Time) bool {
	now = now.UTC()
	if m.FirstResponseAt == nil && now.After(effectiveDeadline(m.ResponseDeadline, m, now)) {
		m.ResponseBreached = true
	}
	if m.Breached {
		return false
	}
	if now.After(effectiveDeadline(m.ResolutionDeadline, m, now)) {
		m.Breached = true
		m.BreachedAt = &now
		return true
	}
	return false
}

// effectiveDeadline accounts for an in-flight pause: while paused the
// deadline has not been shifted yet, so the pending pause duration is added.
func effectiveDeadline(deadline time.Time, m *domain.SlaMeasurement, now time.Time) time.Time {
	if m.IsPaused() {
		return deadline.Add(now.Sub(*m.PauseStartedAt))
	}
	return deadline
}
