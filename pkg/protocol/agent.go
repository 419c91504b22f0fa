package protocol

// AgentName identifies a conversation participant. The set is closed:
// the router is the only hub, customer_data and support never address
// each other directly.
type AgentName string

const (
	AgentUser         AgentName = "user"
	AgentRouter       AgentName = "router"
	AgentCustomerData AgentName = "customer_data"
	AgentSupport      AgentName = "support"
)

// Valid reports whether n is one of the four known participants.
func (n AgentName) Valid() bool {
	switch n {
	case AgentUser, AgentRouter, AgentCustomerData, AgentSupport:
		return true
	}
	return false
}
