package presence

import (
	"encoding/json"

	"github.com/devsantiago69/Citaly-sub002/pkg/models"
)

// Domain helpers. Each one is a thin composition over the notify
// primitives: the owning company is always told, the client and the staff
// member only when the appointment carries their ids.

// NotifyAppointmentUpdate pushes an updated appointment to the company and
// to the client/staff user rooms when present
func (r *Registry) NotifyAppointmentUpdate(appointment models.Appointment) {
	r.fanOutAppointment("appointment_updated", appointment)
}

// NotifyNewAppointment pushes a freshly created appointment
func (r *Registry) NotifyNewAppointment(appointment models.Appointment) {
	r.fanOutAppointment("new_appointment", appointment)
}

// NotifyAppointmentReminder pushes an upcoming-appointment reminder
func (r *Registry) NotifyAppointmentReminder(appointment models.Appointment) {
	r.fanOutAppointment("appointment_reminder", appointment)
}

func (r *Registry) fanOutAppointment(event string, appointment models.Appointment) {
	payload := toPayload(appointment)

	if appointment.CompanyID != "" {
		r.NotifyCompany(appointment.CompanyID, event, payload)
	}
	if appointment.ClientID != "" {
		r.NotifyUser(appointment.ClientID, event, payload)
	}
	if appointment.StaffID != "" {
		r.NotifyUser(appointment.StaffID, event, payload)
	}
}

// toPayload flattens a domain struct into the map shape the transport
// delivers, going through JSON so wire tags apply
func toPayload(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	payload := make(map[string]any)
	if err := json.Unmarshal(raw, &payload); err != nil {
		return map[string]any{}
	}
	return payload
}
