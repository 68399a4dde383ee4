package webhook

import (
	"time"

	"github.com/devsantiago69/Citaly-sub002/pkg/models"
)

// Fixed-shape event wrappers. Each one names the event and projects the
// fields the downstream automation tool expects out of the domain object.

// AppointmentCreated announces a newly booked appointment
func (d *Dispatcher) AppointmentCreated(appointment models.Appointment) Result {
	return d.Send("appointment.created", map[string]any{
		"appointment": appointment,
		"client":      appointment.Client,
		"service":     appointment.Service,
		"staff":       appointment.Staff,
	})
}

// AppointmentUpdated announces a rescheduled or otherwise changed
// appointment
func (d *Dispatcher) AppointmentUpdated(appointment models.Appointment, changes map[string]any) Result {
	return d.Send("appointment.updated", map[string]any{
		"appointment": appointment,
		"changes":     changes,
	})
}

// AppointmentCancelled announces a cancellation with its reason
func (d *Dispatcher) AppointmentCancelled(appointment models.Appointment, reason string) Result {
	return d.Send("appointment.cancelled", map[string]any{
		"appointment": appointment,
		"reason":      reason,
	})
}

// AppointmentCompleted announces a completed appointment. Revenue is read
// from the booked service's price; appointments without a service snapshot
// report zero.
func (d *Dispatcher) AppointmentCompleted(appointment models.Appointment) Result {
	var revenue int64
	if appointment.Service != nil {
		revenue = appointment.Service.Price
	}
	return d.Send("appointment.completed", map[string]any{
		"appointment": appointment,
		"revenue":     revenue,
	})
}

// ClientRegistered announces a new client signup
func (d *Dispatcher) ClientRegistered(client models.ClientSnapshot) Result {
	return d.Send("client.registered", map[string]any{
		"client": client,
	})
}

// PaymentReceived announces a received payment
func (d *Dispatcher) PaymentReceived(payment models.Payment) Result {
	return d.Send("payment.received", map[string]any{
		"payment": payment,
	})
}

// ReminderSent announces that an appointment reminder went out on some
// channel (email, sms, push)
func (d *Dispatcher) ReminderSent(appointment models.Appointment, channel string) Result {
	return d.Send("reminder.sent", map[string]any{
		"appointment": appointment,
		"channel":     channel,
	})
}

// StaffActivity announces a staff member action
func (d *Dispatcher) StaffActivity(staff models.StaffSnapshot, action string) Result {
	return d.Send("staff.activity", map[string]any{
		"staff":  staff,
		"action": action,
	})
}

// SystemAlert announces an operational alert
func (d *Dispatcher) SystemAlert(level, message string, details map[string]any) Result {
	return d.Send("system.alert", map[string]any{
		"level":   level,
		"message": message,
		"details": details,
	})
}

// DailyMetrics relays the day's aggregated metrics
func (d *Dispatcher) DailyMetrics(metrics map[string]any) Result {
	return d.Send("metrics.daily", metrics)
}

// WeeklyReport relays the weekly summary report
func (d *Dispatcher) WeeklyReport(report map[string]any) Result {
	return d.Send("report.weekly", report)
}

// TestConnection dispatches a probe event so operators can verify the
// configured target end to end
func (d *Dispatcher) TestConnection() Result {
	return d.Send("test.connection", map[string]any{
		"message":      "connection test",
		"triggered_at": time.Now().UTC().Format(time.RFC3339),
	})
}
