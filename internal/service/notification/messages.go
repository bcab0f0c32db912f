package notification

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

// renderer turns appointments into message text. Names come from the
// directory; unknown people are shown by id.
type renderer struct {
	names model.PersonLookup
}

func (r renderer) join(ids []uuid.UUID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, r.names.Name(id))
	}
	return strings.Join(parts, ", ")
}

func serviceSuffix(a *model.Appointment) string {
	if a.ServiceType == "" {
		return ""
	}
	return fmt.Sprintf(" (%s)", a.ServiceType)
}

// providerMessage describes only the triggering appointment.
func (r renderer) providerMessage(kind model.NotificationKind, a, prev *model.Appointment) string {
	with := r.join(a.PatientIDs)
	switch kind {
	case model.NotificationKindCreate:
		return fmt.Sprintf("New appointment on %s at %s with %s%s.", a.Date, a.Time, with, serviceSuffix(a))
	case model.NotificationKindReschedule:
		if prev != nil {
			return fmt.Sprintf("Appointment with %s%s moved from %s at %s to %s at %s.",
				with, serviceSuffix(a), prev.Date, prev.Time, a.Date, a.Time)
		}
		return fmt.Sprintf("Appointment with %s%s needs to be rescheduled from %s at %s.",
			with, serviceSuffix(a), a.Date, a.Time)
	case model.NotificationKindCancel:
		return fmt.Sprintf("Appointment on %s at %s with %s%s was cancelled.", a.Date, a.Time, with, serviceSuffix(a))
	default:
		return fmt.Sprintf("Appointment on %s at %s with %s%s was updated (status: %s).",
			a.Date, a.Time, with, serviceSuffix(a), a.Status)
	}
}

// patientMessage describes the trigger alone, or every appointment the
// patient has that day when sameDay holds more than one.
func (r renderer) patientMessage(kind model.NotificationKind, a, prev *model.Appointment, sameDay []*model.Appointment) string {
	if len(sameDay) > 1 {
		return r.summary(kind, a, prev, sameDay)
	}

	with := r.join(a.ProviderIDs)
	switch kind {
	case model.NotificationKindCreate:
		return fmt.Sprintf("Your appointment on %s at %s with %s%s is booked.", a.Date, a.Time, with, serviceSuffix(a))
	case model.NotificationKindReschedule:
		if prev != nil {
			return fmt.Sprintf("Your appointment with %s%s moved from %s at %s to %s at %s.",
				with, serviceSuffix(a), prev.Date, prev.Time, a.Date, a.Time)
		}
		return fmt.Sprintf("Your appointment on %s at %s with %s%s will be rescheduled.", a.Date, a.Time, with, serviceSuffix(a))
	case model.NotificationKindCancel:
		return fmt.Sprintf("Your appointment on %s at %s with %s%s was cancelled.", a.Date, a.Time, with, serviceSuffix(a))
	default:
		return fmt.Sprintf("Your appointment on %s at %s with %s%s was updated.", a.Date, a.Time, with, serviceSuffix(a))
	}
}

func (r renderer) summary(kind model.NotificationKind, a, prev *model.Appointment, sameDay []*model.Appointment) string {
	var b strings.Builder
	if kind == model.NotificationKindReschedule && prev != nil {
		fmt.Fprintf(&b, "An appointment moved from %s at %s to %s at %s.\n", prev.Date, prev.Time, a.Date, a.Time)
	}
	fmt.Fprintf(&b, "Your appointments on %s:", a.Date)
	for _, appt := range sameDay {
		fmt.Fprintf(&b, "\n- %s with %s%s", appt.Time, r.join(appt.ProviderIDs), serviceSuffix(appt))
	}
	return b.String()
}

// mergeSameDay adds trigger to the patient's other appointments that day,
// replacing any stale copy of it, and sorts by time.
func mergeSameDay(trigger *model.Appointment, others []*model.Appointment) []*model.Appointment {
	out := make([]*model.Appointment, 0, len(others)+1)
	out = append(out, trigger)
	for _, a := range others {
		if a.ID == trigger.ID || a.Date != trigger.Date || a.Status == model.AppointmentStatusCancelled {
			continue
		}
		out = append(out, a)
	}
	model.SortByStart(out)
	return out
}
