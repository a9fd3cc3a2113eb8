package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bradleyjkemp/cupaloy/v2"
	"github.com/caarlos0/env/v10"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raisefunds/chain"
	"raisefunds/config"
	"raisefunds/database"
	chaintest "raisefunds/testing"
)

const beneficiary = "0x6666666666666666666666666666666666666666"

type testConfig struct {
	// sqlite runs against a private in-memory database; mysql needs the
	// DB_* variables below.
	DBDriver   string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"3306"`
	DBName     string `env:"DB_NAME" envDefault:"raisefunds_test"`
	DBUsername string `env:"DB_USERNAME" envDefault:"root"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"root"`

	ChainID int64 `env:"MOCK_CHAIN_ID" envDefault:"114"`
}

func TestIntegration(t *testing.T) {
	var tCfg testConfig
	err := env.Parse(&tCfg)
	require.NoError(t, err, "Could not parse test config")

	mock := chaintest.NewMockChain(tCfg.ChainID)
	node := httptest.NewServer(mock.Handler())
	defer node.Close()

	cfg := initConfig(t, tCfg, node.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	baseURL := "http://" + cfg.Server.Address
	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond, "server did not start")

	checkSeeded(t, baseURL)
	checkDonations(t, baseURL, mock)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}

func initConfig(t *testing.T, tCfg testConfig, nodeURL string) *config.Config {
	dbCfg := config.DBConfig{
		Driver:           tCfg.DBDriver,
		Host:             tCfg.DBHost,
		Port:             tCfg.DBPort,
		Database:         tCfg.DBName,
		Username:         tCfg.DBUsername,
		Password:         tCfg.DBPassword,
		DropTableAtStart: true,
	}
	if tCfg.DBDriver == database.DriverSQLite {
		dbCfg = database.TestDBConfig(t.Name())
	}
	dbCfg.SeedAtStart = true

	cfg := &config.Config{
		DB: dbCfg,
		Logger: config.LoggerConfig{
			Level:       "DEBUG",
			File:        filepath.Join(t.TempDir(), "raisefunds-inttest.log"),
			MaxFileSize: 10,
			Console:     false,
		},
		Chain: config.ChainConfig{
			NodeURL:             nodeURL,
			ChainType:           chain.ChainTypeAvax,
			VerifyTimeoutMillis: 2000,
		},
		Server: config.ServerConfig{
			Address:            freeAddress(t),
			AdminKey:           "inttest-admin",
			CreatorPassword:    "inttest-password",
			ReadTimeoutMillis:  5000,
			WriteTimeoutMillis: 5000,
			IdleTimeoutMillis:  5000,
		},
		Reconciler: config.ReconcilerConfig{
			IntervalSeconds: 1,
		},
	}

	config.GlobalConfigCallback.Call(cfg)

	return cfg
}

func freeAddress(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	return l.Addr().String()
}

func post(t *testing.T, url string, body any, out any) int {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func get(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func checkSeeded(t *testing.T, baseURL string) {
	var medical []database.Fundraiser
	status := get(t, baseURL+"/api/fundraisers?category=Medical", &medical)
	require.Equal(t, http.StatusOK, status)

	require.Len(t, medical, 1)
	assert.Equal(t, "Medical aid for local clinic", medical[0].Title)
	assert.True(t, decimal.RequireFromString("1.25").Equal(medical[0].TotalRaised.Decimal), medical[0].TotalRaised.String())
}

type donationSummary struct {
	DonorName string
	Amount    string
	Status    database.DonationStatus
	OnChain   bool
}

func checkDonations(t *testing.T, baseURL string, mock *chaintest.MockChain) {
	var f database.Fundraiser
	status := post(t, baseURL+"/api/fundraisers", map[string]any{
		"title":              "Rebuild the community hall",
		"description":        "Roof and heating",
		"goalAmount":         "10.5",
		"beneficiaryAddress": beneficiary,
		"category":           "Community",
	}, &f)
	require.Equal(t, http.StatusCreated, status)

	var pledge database.Donation
	status = post(t, fmt.Sprintf("%s/api/fundraisers/%d/donate", baseURL, f.ID), map[string]any{
		"amount":    1.25,
		"donorName": "Erin",
	}, &pledge)
	require.Equal(t, http.StatusCreated, status)

	var confirmed struct {
		Success  bool              `json:"success"`
		Donation database.Donation `json:"donation"`
	}
	status = post(t, fmt.Sprintf("%s/api/donations/%d/confirm", baseURL, pledge.ID), nil, &confirmed)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, confirmed.Success)

	status = post(t, fmt.Sprintf("%s/api/fundraisers/%d/donate", baseURL, f.ID), map[string]any{
		"amount": "0.5",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	to := common.HexToAddress(beneficiary)
	tx, err := mock.SignedTransfer(key, 0, &to, big.NewInt(2_250_000_000_000_000_000))
	require.NoError(t, err)
	hash := mock.AddTransaction(tx, crypto.PubkeyToAddress(key.PublicKey), types.ReceiptStatusSuccessful)

	status = post(t, baseURL+"/api/donations/verify", map[string]any{
		"fundraiserId": f.ID,
		"txHash":       hash.Hex(),
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	status = post(t, baseURL+"/api/donations/verify", map[string]any{
		"fundraiserId": f.ID,
		"txHash":       hash.Hex(),
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	status = post(t, baseURL+"/api/donations/verify", map[string]any{
		"fundraiserId": f.ID,
		"txHash":       common.HexToHash("0x1234").Hex(),
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	var details database.Fundraiser
	status = get(t, fmt.Sprintf("%s/api/fundraisers/%d", baseURL, f.ID), &details)
	require.Equal(t, http.StatusOK, status)

	// 1.25 confirmed off-chain plus 2.25 verified on-chain; the 0.5 pledge is
	// still pending.
	assert.True(t, decimal.RequireFromString("3.5").Equal(details.TotalRaised.Decimal), details.TotalRaised.String())

	summaries := make([]donationSummary, len(details.Donations))
	for i, d := range details.Donations {
		summaries[i] = donationSummary{
			DonorName: d.DonorName,
			Amount:    d.Amount.String(),
			Status:    d.Status,
			OnChain:   d.TxHash != nil,
		}
	}
	cupaloy.SnapshotT(t, summaries)
}
