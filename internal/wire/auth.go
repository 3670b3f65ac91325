package wire

import "time"

type LoginRequest struct {
	Username string
	Password string
	UserType string
}

func (m *LoginRequest) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Username)
	b = appendString(b, 2, m.Password)
	b = appendString(b, 3, m.UserType)
	return b, nil
}

func (m *LoginRequest) UnmarshalWire(b []byte) error {
	*m = LoginRequest{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Username, err = f.str()
		case 2:
			m.Password, err = f.str()
		case 3:
			m.UserType, err = f.str()
		}
		return err
	})
}

type LoginResponse struct {
	Message      string
	UserID       int64
	UserType     string
	Name         string
	SessionToken string
	ExpiresAt    time.Time
}

func (m *LoginResponse) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Message)
	b = appendInt(b, 2, m.UserID)
	b = appendString(b, 3, m.UserType)
	b = appendString(b, 4, m.Name)
	b = appendString(b, 5, m.SessionToken)
	return appendTime(b, 6, m.ExpiresAt)
}

func (m *LoginResponse) UnmarshalWire(b []byte) error {
	*m = LoginResponse{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Message, err = f.str()
		case 2:
			m.UserID, err = f.i64()
		case 3:
			m.UserType, err = f.str()
		case 4:
			m.Name, err = f.str()
		case 5:
			m.SessionToken, err = f.str()
		case 6:
			m.ExpiresAt, err = f.time()
		}
		return err
	})
}

// LogoutRequest is empty; the session comes from the authorization metadata.
type LogoutRequest struct{}

func (m *LogoutRequest) MarshalWire() ([]byte, error) { return nil, nil }

func (m *LogoutRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(field) error { return nil })
}

type LogoutResponse struct {
	Message string
}

func (m *LogoutResponse) MarshalWire() ([]byte, error) {
	return appendString(nil, 1, m.Message), nil
}

func (m *LogoutResponse) UnmarshalWire(b []byte) error {
	*m = LogoutResponse{}
	return walk(b, func(f field) (err error) {
		if f.num == 1 {
			m.Message, err = f.str()
		}
		return err
	})
}
