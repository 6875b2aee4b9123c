package kvstore

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverNATS   = "nats"
)

// Options selects and configures a backend.
type Options struct {
	Driver    string
	Namespace string
	ClientID  string

	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string

	// NATSURL and Bucket configure the nats driver.
	NATSURL string
	Bucket  string

	// Hub is shared by memory backends; a private hub is created when nil.
	Hub *MemoryHub
}

// Open returns the backend named by opts.Driver.
func Open(opts Options) (Backend, error) {
	switch opts.Driver {
	case DriverMemory, "":
		hub := opts.Hub
		if hub == nil {
			hub = NewMemoryHub()
		}
		return hub.Client(opts.ClientID), nil
	case DriverSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = ":memory:"
		}
		b, err := NewSQLiteBackend(path, opts.Namespace)
		if err != nil {
			return nil, err
		}
		return b, nil
	case DriverNATS:
		b, err := NewNATSBackend(opts.NATSURL, opts.Bucket)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, ErrUnknownDriver.WithContext("driver", opts.Driver)
	}
}
