package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremetrics "github.com/kilianp07/resident-scheduler/core/metrics"
	coremqtt "github.com/kilianp07/resident-scheduler/core/mqtt"
	"github.com/kilianp07/resident-scheduler/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	// Listen subscribes to solve requests under <prefix>/requests.
	Listen     bool            `json:"listen"`
	UseTLS     bool            `json:"use_tls"`
	ClientCert string          `json:"client_cert"`
	ClientKey  string          `json:"client_key"`
	CABundle   string          `json:"ca_bundle"`
	AuthMethod string          `json:"auth_method"`
	QoS        map[string]byte `json:"qos"`
	LWTTopic   string          `json:"lwt_topic"`
	LWTPayload string          `json:"lwt_payload"`
	LWTQoS     byte            `json:"lwt_qos"`
	LWTRetain  bool            `json:"lwt_retain"`
	MaxRetries int             `json:"max_retries"`
	BackoffMS  int             `json:"backoff_ms"`
	TLSConfig  *tls.Config     `json:"-"`
}

// SetDefaults fills the topic prefix, client ID and retry policy.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "scheduler"
	}
	c.TopicPrefix = strings.TrimSuffix(c.TopicPrefix, "/")
	if c.ClientID == "" {
		c.ClientID = "scheduler-" + uuid.NewString()[:8]
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the values SetDefaults cannot supply.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	for k, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("mqtt qos %s=%d outside 0..2", k, q)
		}
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient publishes run status with Eclipse Paho and optionally receives
// solve requests.
type PahoClient struct {
	cli    pahoClient
	prefix string
	qos    map[string]byte

	requests   chan coremqtt.Request
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the broker. With Listen set it subscribes to the
// request topic on every (re)connect.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	if cfg.Listen {
		pc.requests = make(chan coremqtt.Request, 16)
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if pc.requests == nil {
			return
		}
		topic := pc.RequestTopic()
		if token := c.Subscribe(topic, pc.qosFor("request"), pc.onRequest); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s: %v", topic, token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s holds no certificates", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// StateTopic is where the transitions of runID are published.
func (p *PahoClient) StateTopic(runID string) string {
	return fmt.Sprintf("%s/runs/%s/state", p.prefix, runID)
}

// ResultTopic holds the retained report of the latest run for block.
func (p *PahoClient) ResultTopic(block int) string {
	return fmt.Sprintf("%s/blocks/%d/result", p.prefix, block)
}

// RequestTopic is subscribed to when listening for solve requests.
func (p *PahoClient) RequestTopic() string { return p.prefix + "/requests" }

// ReplyTopic carries the answer to one request.
func (p *PahoClient) ReplyTopic(requestID string) string {
	return fmt.Sprintf("%s/replies/%s", p.prefix, requestID)
}

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

type stateMessage struct {
	RunID     string `json:"run_id"`
	Block     int    `json:"block"`
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp int64  `json:"timestamp"`
}

// PublishState implements coremqtt.Publisher.
func (p *PahoClient) PublishState(ev coremetrics.StateEvent) error {
	payload, err := json.Marshal(stateMessage{
		RunID:     ev.RunID,
		Block:     ev.Block,
		From:      ev.From,
		To:        ev.To,
		Timestamp: ev.Time.UnixMilli(),
	})
	if err != nil {
		return err
	}
	return p.publish(p.StateTopic(ev.RunID), p.qosFor("state"), false, payload)
}

// PublishResult implements coremqtt.Publisher. The message is retained so
// late subscribers see the latest outcome of each block.
func (p *PahoClient) PublishResult(block int, report any) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return p.publish(p.ResultTopic(block), p.qosFor("result"), true, payload)
}

// PublishReply implements coremqtt.Publisher.
func (p *PahoClient) PublishReply(requestID string, report any) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return p.publish(p.ReplyTopic(requestID), p.qosFor("result"), false, payload)
}

func (p *PahoClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	if p.cli == nil || !p.cli.IsConnected() {
		return coremqtt.ErrNotConnected
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

func (p *PahoClient) onRequest(_ paho.Client, msg paho.Message) {
	var req coremqtt.Request
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		p.logger.Errorf("failed to decode request: %v", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	select {
	case p.requests <- req:
		p.logger.Infof("received solve request %s", req.ID)
	default:
		p.logger.Warnf("request queue full, dropping %s", req.ID)
	}
}

// Requests implements coremqtt.RequestSource. It returns nil unless the
// client was created with Listen.
func (p *PahoClient) Requests() <-chan coremqtt.Request { return p.requests }

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
