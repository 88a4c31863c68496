package chain

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Node оборачивает один JSON-RPC endpoint вместе с его состоянием здоровья.
type Node struct {
	Client *ethclient.Client
	URL    string

	mu       sync.RWMutex
	active   bool
	failures int
	latency  time.Duration
}

// IsActive reports whether the node is considered healthy.
func (n *Node) IsActive() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.active
}

// SetActive marks the node healthy or unhealthy.
func (n *Node) SetActive(active bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = active
	if active {
		n.failures = 0
	}
}

// UpdateMetrics records the outcome of one request against this node.
// Three consecutive failures deactivate the node.
func (n *Node) UpdateMetrics(success bool, latency time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.latency = latency
	if success {
		n.failures = 0
		n.active = true
		return
	}
	n.failures++
	if n.failures >= 3 {
		n.active = false
	}
}

// Pool хранит набор узлов и выдает их по кругу.
type Pool struct {
	Nodes     []*Node
	CurrIndex int
	Mutex     sync.Mutex
}

// NewPool создает новый пул узлов
func NewPool(nodes []*Node) *Pool {
	return &Pool{Nodes: nodes}
}

// GetNextNode возвращает следующий активный узел из пула, либо nil.
func (p *Pool) GetNextNode() *Node {
	p.Mutex.Lock()
	defer p.Mutex.Unlock()

	initialIndex := p.CurrIndex
	for {
		p.CurrIndex = (p.CurrIndex + 1) % len(p.Nodes)
		if p.Nodes[p.CurrIndex].IsActive() {
			return p.Nodes[p.CurrIndex]
		}
		if p.CurrIndex == initialIndex {
			return nil
		}
	}
}

// HasActiveNodes проверяет наличие активных узлов в пуле
func (p *Pool) HasActiveNodes() bool {
	for _, node := range p.Nodes {
		if node.IsActive() {
			return true
		}
	}
	return false
}
