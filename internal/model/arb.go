package model

// ArbRecord is a discovered arbitrage opportunity in storage form.
type ArbRecord struct {
	ChainID          uint64 `json:"chain_id"`
	BlockNumber      uint64 `json:"block_number"`
	Pair             string `json:"pair"`
	FlashPool        string `json:"flash_pool"`
	FirstSwapPool    string `json:"first_swap_pool"`
	SecondSwapPool   string `json:"second_swap_pool"`
	FlashToken       string `json:"flash_token"`
	FlashAmount      string `json:"flash_amount"`
	FirstSwapOutMin  string `json:"first_swap_out_min"`
	SecondSwapOutMin string `json:"second_swap_out_min"`
	Profit           string `json:"profit"`
	ProfitReadable   string `json:"profit_readable"`
}
