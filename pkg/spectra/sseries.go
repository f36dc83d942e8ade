package spectra

// The CIE S-series basis functions for daylight SPD reconstruction,
// tabulated at 10nm from 300 to 830nm. Columns are S0, S1, S2.
var sSeriesFirst = 300.0
var sSeriesStep = 10.0

var sSeries = [54][3]float64{
	{0.04, 0.02, 0.0},
	{6.0, 4.5, 2.0},
	{29.6, 22.4, 4.0},
	{55.3, 42.0, 8.5},
	{57.3, 40.6, 7.8},
	{61.8, 41.6, 6.7},
	{61.5, 38.0, 5.3},
	{68.8, 42.4, 6.1},
	{63.4, 38.5, 3.0},
	{65.8, 35.0, 1.2},
	{94.8, 43.4, -1.1},
	{104.8, 46.3, -0.5},
	{105.9, 43.9, -0.7},
	{96.8, 37.1, -1.2},
	{113.9, 36.7, -2.6},
	{125.6, 35.9, -2.9},
	{125.5, 32.6, -2.8},
	{121.3, 27.9, -2.6},
	{121.3, 24.3, -2.6},
	{113.5, 20.1, -1.8},
	{113.1, 16.2, -1.5},
	{110.8, 13.2, -1.3},
	{106.5, 8.6, -1.2},
	{108.8, 6.1, -1.0},
	{105.3, 4.2, -0.5},
	{104.4, 1.9, -0.3},
	{100.0, 0.0, 0.0},
	{96.0, -1.6, 0.2},
	{95.1, -3.5, 0.5},
	{89.1, -3.5, 2.1},
	{90.5, -5.8, 3.2},
	{90.3, -7.2, 4.1},
	{88.4, -8.6, 4.7},
	{84.0, -9.5, 5.1},
	{85.1, -10.9, 6.7},
	{81.9, -10.7, 7.3},
	{82.6, -12.0, 8.6},
	{84.9, -14.0, 9.8},
	{81.3, -13.6, 10.2},
	{71.9, -12.0, 8.3},
	{74.3, -13.3, 9.6},
	{76.4, -12.9, 8.5},
	{63.3, -10.6, 7.0},
	{71.7, -11.6, 7.6},
	{77.0, -12.2, 8.0},
	{65.2, -10.2, 6.7},
	{47.7, -7.8, 5.2},
	{68.6, -11.2, 7.4},
	{65.0, -10.4, 6.8},
	{66.0, -10.6, 7.0},
	{61.0, -9.7, 6.4},
	{53.3, -8.3, 5.5},
	{58.9, -9.3, 6.1},
	{61.9, -9.8, 6.5},
}
