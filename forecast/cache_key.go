package forecast

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/sim"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/cast"
)

const calibrationKeyPrefix = "calibration:v1:"

// CalibrationKey 由残差池指纹与所有影响校准结果的参数生成缓存键.
// Paths、StartPrice 与 Workers 不影响漂移，不参与计算.
func CalibrationKey(pool *sim.ResidualPool, cfg sim.Config) string {
	h := sha256.New()
	fp := pool.Fingerprint()
	h.Write(fp[:])

	var buf [8]byte
	putInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], cast.Int64ToUint64(v))
		h.Write(buf[:])
	}
	putFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}

	putInt(int64(pool.TradingDays()))
	putInt(int64(cfg.HorizonDays))
	putInt(int64(cfg.PilotPaths))
	putInt(int64(cfg.BlockLength))
	putInt(cfg.Seed)
	putFloat(cfg.TargetReturn)
	putFloat(cfg.TargetVolatility)
	putInt(int64(cfg.Recenter))
	putInt(int64(cfg.RecenterWindow))
	if cfg.ControlVariate {
		putInt(1)
	} else {
		putInt(0)
	}

	return calibrationKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
