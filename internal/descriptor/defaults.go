package descriptor

// Credential slots of the default signer set, in signing order.
const (
	SlotDeployer = "deployer"
	SlotAdmin    = "admin"
	SlotUser1    = "user1"
	SlotUser2    = "user2"
)

// DefaultSignerSet is reused by every remote network in DefaultSpec.
const DefaultSignerSet = "default"

// SandboxNetwork is the name the runner gives its in-process network.
const SandboxNetwork = "hardhat"

// SandboxForkBlock is the BSC testnet block the sandbox replays from.
const SandboxForkBlock = 13637023

// DefaultSpec returns the project's declared toolchain: two compiler
// versions, eight remote networks sharing one signer set, a sandbox forking
// the BSC testnet archive, USD gas reporting and a BscScan API key.
func DefaultSpec() Spec {
	optimized := OptimizerSpec{Enabled: true, Runs: 200}

	remote := func(name, url string, chainID uint64) NetworkSpec {
		return NetworkSpec{Name: name, URL: url, ChainID: chainID, SignerSet: DefaultSignerSet}
	}

	return Spec{
		Compilers: []CompilerSpec{
			{Version: "0.8.9", Optimizer: optimized},
			{Version: "0.6.12", Optimizer: optimized},
		},
		SignerSets: []SignerSetSpec{
			{
				Name: DefaultSignerSet,
				Slots: []SlotSpec{
					{Name: SlotDeployer, Ref: "PRIVATE_KEY_DEPLOYER"},
					{Name: SlotAdmin, Ref: "PRIVATE_KEY_ADMIN"},
					{Name: SlotUser1, Ref: "PRIVATE_KEY_USER1"},
					{Name: SlotUser2, Ref: "PRIVATE_KEY_USER2"},
				},
			},
		},
		Networks: []NetworkSpec{
			remote("rinkeby", "https://eth-rinkeby.alchemyapi.io/v2/7z572lXXuyfpl4wcS-faR81Oyobzb8Pj", 0),
			remote("kovan", "https://kovan.infura.io/v3/57bcc53fd8024abfac8c01b0bd18d12b", 0),
			remote("matic", "https://apis.ankr.com/e22bfa5f5a124b9aa1f911b742f6adfe/c06bb163c3c2a10a4028959f4d82836d/polygon/full/main", 0),
			remote("goerli", "https://eth-goerli.alchemyapi.io/v2/7z572lXXuyfpl4wcS-faR81Oyobzb8Pj", 0),
			remote("bsc_testnet", "https://data-seed-prebsc-2-s3.binance.org:8545/", 0),
			remote("mumbai", "https://polygon-mumbai.g.alchemy.com/v2/7z572lXXuyfpl4wcS-faR81Oyobzb8Pj", 0),
			{
				Name: SandboxNetwork,
				Forking: &ForkingSpec{
					URL:         "https://speedy-nodes-nyc.moralis.io/5ba923ae20cc2c0509504eaa/bsc/testnet/archive",
					BlockNumber: SandboxForkBlock,
				},
			},
			remote("arbitrum_rinkeby", "https://arbitrum-rinkeby.infura.io/v3/bf7ca7329c7c4b04b73e3883a2f07f60", 421611),
			remote("arbitrum_mainnet", "https://arbitrum-mainnet.infura.io/v3/bf7ca7329c7c4b04b73e3883a2f07f60", 42161),
		},
		Reporting: ReportingSpec{
			Enabled:  true,
			Currency: "USD",
		},
		Verification: VerificationSpec{
			APIKey: "BSCSCAN_APIKEY",
		},
	}
}
