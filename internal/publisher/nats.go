package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSPublisher fans newly collected vehicle positions out to NATS so map
// dashboards can subscribe instead of polling the store.
type NATSPublisher struct {
	nc          *nats.Conn
	logSubjects bool
	logger      *zap.Logger
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url string, logSubjects bool, logger *zap.Logger, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("pulsetransit-collector"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, logSubjects: logSubjects, logger: logger, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// PositionMessage mirrors a stored position row. Nullable source fields
// stay nullable on the wire.
type PositionMessage struct {
	Vehicle     *int64    `json:"vehicle"`
	Line        *int64    `json:"line"`
	Instant     *string   `json:"instant"`
	Lat         *float64  `json:"lat"`
	Lon         *float64  `json:"lon"`
	Speed       *int64    `json:"speed"`
	Status      *int64    `json:"status"`
	CollectedAt time.Time `json:"collectedAt"`
}

// PublishPosition publishes one position on positions.<line>.<vehicle>.
func (p *NATSPublisher) PublishPosition(msg PositionMessage) error {
	subject := fmt.Sprintf("positions.%s.%s", subjectToken(formatID(msg.Line)), subjectToken(formatID(msg.Vehicle)))
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if p.logSubjects {
		p.logger.Debug("nats publish", zap.String("subject", subject))
	}
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func formatID(v *int64) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *v)
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
