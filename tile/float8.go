// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tile

import "math"

// Float8E4M3 is the OCP "E4M3FN" 8-bit float: 4 exponent bits (bias 7),
// 3 mantissa bits, no infinities, NaN encoded as S.1111.111.
// Max finite value is 448.
type Float8E4M3 uint8

// Float8E5M2 is the OCP "E5M2" 8-bit float: 5 exponent bits (bias 15),
// 2 mantissa bits, IEEE-style infinities and NaNs.
// Max finite value is 57344.
type Float8E5M2 uint8

const (
	e4m3Bias     = 7
	e4m3ManBits  = 3
	e4m3MaxCode  = 0x7E
	e4m3NaNCode  = 0x7F
	e5m2Bias     = 15
	e5m2ManBits  = 2
	e5m2MaxCode  = 0x7B
	e5m2InfCode  = 0x7C
	e5m2NaNCode  = 0x7E
	float8Sign   = 0x80
	float8NoSign = 0x7F
)

// NewFloat8E4M3 rounds f to the nearest E4M3 value, ties to even.
// Out-of-range values, including infinities, saturate to ±448.
func NewFloat8E4M3(f float32) Float8E4M3 {
	if math.IsNaN(float64(f)) {
		return Float8E4M3(signOf(f) | e4m3NaNCode)
	}
	return Float8E4M3(encodeMinifloat(f, e4m3ManBits, e4m3Bias, e4m3MaxCode))
}

// Float32 widens h to float32. Exact.
func (h Float8E4M3) Float32() float32 {
	if h&float8NoSign == e4m3NaNCode {
		return float32(math.NaN())
	}
	return decodeMinifloat(uint8(h), e4m3ManBits, e4m3Bias)
}

// NewFloat8E5M2 rounds f to the nearest E5M2 value, ties to even.
// Finite values beyond the range saturate to ±57344; infinities are kept.
func NewFloat8E5M2(f float32) Float8E5M2 {
	switch {
	case math.IsNaN(float64(f)):
		return Float8E5M2(signOf(f) | e5m2NaNCode)
	case math.IsInf(float64(f), 0):
		return Float8E5M2(signOf(f) | e5m2InfCode)
	}
	return Float8E5M2(encodeMinifloat(f, e5m2ManBits, e5m2Bias, e5m2MaxCode))
}

// Float32 widens q to float32. Exact.
func (q Float8E5M2) Float32() float32 {
	switch code := q & float8NoSign; {
	case code == e5m2InfCode:
		if q&float8Sign != 0 {
			return float32(math.Inf(-1))
		}
		return float32(math.Inf(1))
	case code > e5m2InfCode:
		return float32(math.NaN())
	}
	return decodeMinifloat(uint8(q), e5m2ManBits, e5m2Bias)
}

func signOf(f float32) uint8 {
	if math.Signbit(float64(f)) {
		return float8Sign
	}
	return 0
}

// encodeMinifloat rounds a finite f into sign|exponent|mantissa with the given
// mantissa width and bias, clamping the magnitude code to maxCode.
func encodeMinifloat(f float32, manBits, bias int, maxCode uint8) uint8 {
	sign := signOf(f)
	a := math.Abs(float64(f))
	switch {
	case a == 0:
		return sign
	case math.IsInf(a, 1):
		return sign | maxCode
	}
	_, exp := math.Frexp(a)
	e := max(exp-1, 1-bias) // subnormals share the minimum exponent
	m := math.RoundToEven(math.Ldexp(a, manBits-e))
	if m >= float64(int(1)<<(manBits+1)) {
		e++
		m /= 2
	}
	implicit := float64(int(1) << manBits)
	code := int(m)
	if m >= implicit {
		code = (e+bias)<<manBits | int(m-implicit)
	}
	if code > int(maxCode) {
		code = int(maxCode)
	}
	return sign | uint8(code)
}

func decodeMinifloat(b uint8, manBits, bias int) float32 {
	field := int(b&float8NoSign) >> manBits
	m := int(b) & (1<<manBits - 1)
	var v float64
	if field == 0 {
		v = math.Ldexp(float64(m), 1-bias-manBits)
	} else {
		v = math.Ldexp(float64(m|1<<manBits), field-bias-manBits)
	}
	if b&float8Sign != 0 {
		v = -v
	}
	return float32(v)
}
