package roof

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// RequestHandler is called when a measurement request arrives over MQTT.
// jobID is parsed from the topic's last segment when the payload carries
// none. err is non-nil when the payload could not be decoded; the raw
// payload is always provided for logging.
type RequestHandler func(jobID string, rawPayload []byte, input *MeasurementInput, err error)

// MQTTClient manages the MQTT connection and the measurement request
// subscription.
type MQTTClient struct {
	client         mqtt.Client
	settings       MQTTSettings
	requestHandler RequestHandler
	isConnected    bool
	mu             sync.RWMutex
}

var (
	globalClient *MQTTClient
	clientMu     sync.Mutex
)

// InitMQTT initializes the global MQTT client. Environment variables
// override config values so deployments can keep credentials out of the
// config file. If no broker is configured MQTT is disabled and this
// returns nil.
func InitMQTT(settings MQTTSettings, handler RequestHandler) (*MQTTClient, error) {
	clientMu.Lock()
	defer clientMu.Unlock()

	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = settings.Broker
	}
	if broker == "" {
		log.Println("MQTT disabled: no broker configured")
		return nil, nil
	}
	if settings.RequestTopic == "" {
		return nil, fmt.Errorf("MQTT enabled but no request topic configured")
	}

	c := &MQTTClient{
		settings:       settings,
		requestHandler: handler,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = settings.ClientID
	}
	if clientID == "" {
		clientID = "roofmetric"
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" {
		username = settings.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" {
			password = settings.Password
		}
		opts.SetPassword(password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // preserve the request subscription on reconnect
	opts.SetOrderMatters(false) // requests are independent, process concurrently

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.client = mqtt.NewClient(opts)

	go c.connectWithRetry()

	globalClient = c
	return c, nil
}

// GetMQTTClient returns the global MQTT client instance
func GetMQTTClient() *MQTTClient {
	clientMu.Lock()
	defer clientMu.Unlock()
	return globalClient
}

// connectWithRetry attempts to connect with exponential backoff.
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("Connecting to MQTT broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("Successfully connected to MQTT broker")
				c.setConnected(true)
				return
			}
			log.Printf("MQTT connection failed: %v", token.Error())
		} else {
			log.Println("MQTT connection timeout")
		}

		log.Printf("Retrying MQTT connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

func (c *MQTTClient) onConnect(client mqtt.Client) {
	log.Printf("MQTT connected, subscribing to %s", c.settings.RequestTopic)
	c.setConnected(true)

	token := client.Subscribe(c.settings.RequestTopic, 1, c.handleRequest)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("Error subscribing to %s: %v", c.settings.RequestTopic, token.Error())
	} else {
		log.Printf("Successfully subscribed to %s", c.settings.RequestTopic)
	}
}

func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("MQTT reconnecting...")
}

// handleRequest decodes an incoming measurement request and invokes the
// registered handler.
func (c *MQTTClient) handleRequest(client mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()
	jobID := jobIDFromTopic(msg.Topic())
	log.Printf("[MQTT] measurement request (topic: %s, size: %d bytes)", msg.Topic(), len(payload))

	var input MeasurementInput
	if err := json.Unmarshal(payload, &input); err != nil {
		log.Printf("Error decoding measurement request on %s: %v", msg.Topic(), err)
		if c.requestHandler != nil {
			c.requestHandler(jobID, payload, nil, err)
		}
		return
	}
	if input.JobID == "" {
		input.JobID = jobID
	}
	if c.requestHandler != nil {
		c.requestHandler(input.JobID, payload, &input, nil)
	}
}

// jobIDFromTopic extracts the last topic segment as the job identifier.
// Topics look like roofmetric/requests/{jobID}; a bare request topic yields
// an empty ID and the engine assigns one.
func jobIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	last := parts[len(parts)-1]
	if last == "requests" || last == "#" {
		return ""
	}
	return last
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("Disconnecting from MQTT broker...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithMock creates an MQTTClient with a provided mqtt.Client.
// Used by tests.
func newMQTTClientWithMock(client mqtt.Client, settings MQTTSettings, handler RequestHandler) *MQTTClient {
	return &MQTTClient{
		client:         client,
		settings:       settings,
		requestHandler: handler,
	}
}
