package wire

import "time"

type Appointment struct {
	ID                  int64
	PatientID           int64
	DoctorID            int64
	ClinicID            int64
	AppointmentDatetime time.Time
	AppointmentType     string
	DurationMinutes     int32
	Notes               string
	Symptoms            string
	Status              string
	CreatedBy           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	PatientName         string
	DoctorName          string
	ClinicName          string
}

func (m *Appointment) MarshalWire() ([]byte, error) {
	var b []byte
	var err error
	b = appendInt(b, 1, m.ID)
	b = appendInt(b, 2, m.PatientID)
	b = appendInt(b, 3, m.DoctorID)
	b = appendInt(b, 4, m.ClinicID)
	if b, err = appendTime(b, 5, m.AppointmentDatetime); err != nil {
		return nil, err
	}
	b = appendString(b, 6, m.AppointmentType)
	b = appendInt(b, 7, int64(m.DurationMinutes))
	b = appendString(b, 8, m.Notes)
	b = appendString(b, 9, m.Symptoms)
	b = appendString(b, 10, m.Status)
	b = appendString(b, 11, m.CreatedBy)
	if b, err = appendTime(b, 12, m.CreatedAt); err != nil {
		return nil, err
	}
	if b, err = appendTime(b, 13, m.UpdatedAt); err != nil {
		return nil, err
	}
	b = appendString(b, 14, m.PatientName)
	b = appendString(b, 15, m.DoctorName)
	b = appendString(b, 16, m.ClinicName)
	return b, nil
}

func (m *Appointment) UnmarshalWire(b []byte) error {
	*m = Appointment{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.ID, err = f.i64()
		case 2:
			m.PatientID, err = f.i64()
		case 3:
			m.DoctorID, err = f.i64()
		case 4:
			m.ClinicID, err = f.i64()
		case 5:
			m.AppointmentDatetime, err = f.time()
		case 6:
			m.AppointmentType, err = f.str()
		case 7:
			m.DurationMinutes, err = f.i32()
		case 8:
			m.Notes, err = f.str()
		case 9:
			m.Symptoms, err = f.str()
		case 10:
			m.Status, err = f.str()
		case 11:
			m.CreatedBy, err = f.str()
		case 12:
			m.CreatedAt, err = f.time()
		case 13:
			m.UpdatedAt, err = f.time()
		case 14:
			m.PatientName, err = f.str()
		case 15:
			m.DoctorName, err = f.str()
		case 16:
			m.ClinicName, err = f.str()
		}
		return err
	})
}

// AppointmentReply is returned by Create, Get and Update.
type AppointmentReply struct {
	Appointment *Appointment
}

func (m *AppointmentReply) MarshalWire() ([]byte, error) {
	if m.Appointment == nil {
		return nil, nil
	}
	return appendMessage(nil, 1, m.Appointment)
}

func (m *AppointmentReply) UnmarshalWire(b []byte) error {
	*m = AppointmentReply{}
	return walk(b, func(f field) error {
		if f.num != 1 || !f.isBytes() {
			return nil
		}
		m.Appointment = &Appointment{}
		return m.Appointment.UnmarshalWire(f.b)
	})
}

type CreateAppointmentRequest struct {
	PatientID           int64
	DoctorID            int64
	ClinicID            int64
	AppointmentDatetime time.Time
	DurationMinutes     *int32
	AppointmentType     string
	Notes               string
	Symptoms            string
	CreatedBy           string
}

func (m *CreateAppointmentRequest) MarshalWire() ([]byte, error) {
	var b []byte
	var err error
	b = appendInt(b, 1, m.PatientID)
	b = appendInt(b, 2, m.DoctorID)
	b = appendInt(b, 3, m.ClinicID)
	if b, err = appendTime(b, 4, m.AppointmentDatetime); err != nil {
		return nil, err
	}
	b = appendOptInt(b, 5, m.DurationMinutes)
	b = appendString(b, 6, m.AppointmentType)
	b = appendString(b, 7, m.Notes)
	b = appendString(b, 8, m.Symptoms)
	b = appendString(b, 9, m.CreatedBy)
	return b, nil
}

func (m *CreateAppointmentRequest) UnmarshalWire(b []byte) error {
	*m = CreateAppointmentRequest{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.PatientID, err = f.i64()
		case 2:
			m.DoctorID, err = f.i64()
		case 3:
			m.ClinicID, err = f.i64()
		case 4:
			m.AppointmentDatetime, err = f.time()
		case 5:
			var v int32
			if v, err = f.i32(); err == nil {
				m.DurationMinutes = &v
			}
		case 6:
			m.AppointmentType, err = f.str()
		case 7:
			m.Notes, err = f.str()
		case 8:
			m.Symptoms, err = f.str()
		case 9:
			m.CreatedBy, err = f.str()
		}
		return err
	})
}

// UpdateAppointmentRequest uses presence: unset fields are left unchanged.
type UpdateAppointmentRequest struct {
	ID                  int64
	AppointmentDatetime *time.Time
	Status              *string
	Notes               *string
	Symptoms            *string
}

func (m *UpdateAppointmentRequest) MarshalWire() ([]byte, error) {
	var b []byte
	var err error
	b = appendInt(b, 1, m.ID)
	if m.AppointmentDatetime != nil {
		if b, err = appendTime(b, 2, *m.AppointmentDatetime); err != nil {
			return nil, err
		}
	}
	b = appendOptString(b, 3, m.Status)
	b = appendOptString(b, 4, m.Notes)
	b = appendOptString(b, 5, m.Symptoms)
	return b, nil
}

func (m *UpdateAppointmentRequest) UnmarshalWire(b []byte) error {
	*m = UpdateAppointmentRequest{}
	opt := func(f field, dst **string) error {
		s, err := f.str()
		if err == nil {
			*dst = &s
		}
		return err
	}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.ID, err = f.i64()
		case 2:
			var t time.Time
			if t, err = f.time(); err == nil {
				m.AppointmentDatetime = &t
			}
		case 3:
			err = opt(f, &m.Status)
		case 4:
			err = opt(f, &m.Notes)
		case 5:
			err = opt(f, &m.Symptoms)
		}
		return err
	})
}

type ListAppointmentsRequest struct {
	Status string
	Limit  *int32
}

func (m *ListAppointmentsRequest) MarshalWire() ([]byte, error) {
	b := appendString(nil, 1, m.Status)
	return appendOptInt(b, 2, m.Limit), nil
}

func (m *ListAppointmentsRequest) UnmarshalWire(b []byte) error {
	*m = ListAppointmentsRequest{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Status, err = f.str()
		case 2:
			var v int32
			if v, err = f.i32(); err == nil {
				m.Limit = &v
			}
		}
		return err
	})
}

type AppointmentSummary struct {
	ID                  int64
	PatientName         string
	DoctorName          string
	ClinicName          string
	AppointmentDatetime time.Time
	Status              string
	AppointmentType     string
	DurationMinutes     int32
}

func (m *AppointmentSummary) MarshalWire() ([]byte, error) {
	var b []byte
	var err error
	b = appendInt(b, 1, m.ID)
	b = appendString(b, 2, m.PatientName)
	b = appendString(b, 3, m.DoctorName)
	b = appendString(b, 4, m.ClinicName)
	if b, err = appendTime(b, 5, m.AppointmentDatetime); err != nil {
		return nil, err
	}
	b = appendString(b, 6, m.Status)
	b = appendString(b, 7, m.AppointmentType)
	b = appendInt(b, 8, int64(m.DurationMinutes))
	return b, nil
}

func (m *AppointmentSummary) UnmarshalWire(b []byte) error {
	*m = AppointmentSummary{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.ID, err = f.i64()
		case 2:
			m.PatientName, err = f.str()
		case 3:
			m.DoctorName, err = f.str()
		case 4:
			m.ClinicName, err = f.str()
		case 5:
			m.AppointmentDatetime, err = f.time()
		case 6:
			m.Status, err = f.str()
		case 7:
			m.AppointmentType, err = f.str()
		case 8:
			m.DurationMinutes, err = f.i32()
		}
		return err
	})
}

type ListAppointmentsResponse struct {
	Appointments []*AppointmentSummary
}

func (m *ListAppointmentsResponse) MarshalWire() ([]byte, error) {
	var b []byte
	var err error
	for _, a := range m.Appointments {
		if b, err = appendMessage(b, 1, a); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (m *ListAppointmentsResponse) UnmarshalWire(b []byte) error {
	*m = ListAppointmentsResponse{}
	return walk(b, func(f field) error {
		if f.num != 1 || !f.isBytes() {
			return nil
		}
		s := &AppointmentSummary{}
		if err := s.UnmarshalWire(f.b); err != nil {
			return err
		}
		m.Appointments = append(m.Appointments, s)
		return nil
	})
}

// AppointmentID addresses one appointment; used by Get and Delete.
type AppointmentID struct {
	ID int64
}

func (m *AppointmentID) MarshalWire() ([]byte, error) {
	return appendInt(nil, 1, m.ID), nil
}

func (m *AppointmentID) UnmarshalWire(b []byte) error {
	*m = AppointmentID{}
	return walk(b, func(f field) (err error) {
		if f.num == 1 {
			m.ID, err = f.i64()
		}
		return err
	})
}

type DeleteAppointmentResponse struct {
	Message string
}

func (m *DeleteAppointmentResponse) MarshalWire() ([]byte, error) {
	return appendString(nil, 1, m.Message), nil
}

func (m *DeleteAppointmentResponse) UnmarshalWire(b []byte) error {
	*m = DeleteAppointmentResponse{}
	return walk(b, func(f field) (err error) {
		if f.num == 1 {
			m.Message, err = f.str()
		}
		return err
	})
}
