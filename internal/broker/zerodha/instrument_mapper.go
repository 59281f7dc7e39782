package zerodha

import (
	"fmt"
	"sync"
)

// instrumentMapper maps trading symbols to Kite instrument tokens.
type instrumentMapper struct {
	symbolToToken map[string]int
	mu            sync.RWMutex
}

func newInstrumentMapper() *instrumentMapper {
	return &instrumentMapper{
		symbolToToken: make(map[string]int),
	}
}

func (im *instrumentMapper) addMapping(symbol string, token int) {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.symbolToToken[symbol] = token
}

// token returns the instrument token for symbol, or an error naming the
// symbol when it was never loaded.
func (im *instrumentMapper) token(symbol string) (int, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	token, ok := im.symbolToToken[symbol]
	if !ok {
		return 0, fmt.Errorf("no instrument token for %s", symbol)
	}
	return token, nil
}

func (im *instrumentMapper) size() int {
	im.mu.RLock()
	defer im.mu.RUnlock()

	return len(im.symbolToToken)
}

func (im *instrumentMapper) clear() {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.symbolToToken = make(map[string]int)
}
