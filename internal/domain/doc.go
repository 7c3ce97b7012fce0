// Package domain models GOES-16 ABI fire detection data and the rules that
// turn a Level-2 Fire Detection and Characterization (FDC) grid into point
// detections.
//
// # Data Source
//
// FDC full disk files (product ABI-L2-FDCF) are published by NOAA to the
// public S3 bucket noaa-goes16 every 10 minutes under
// <product>/<year>/<day-of-year>/<hour>/. Each file is NetCDF4 and carries
// the fire grids together with the fixed grid geometry.
//
// # Filename Conventions
//
//	OR_ABI-L2-FDCF-M6_G16_s20250320000205_e20250320009513_c20250320010075.nc
//
// The s, e and c fields are scan start, scan end and creation time encoded as
// YYYYJJJHHMMSSt: four digit year, day of year, hour, minute, second and
// tenths of a second. Tenths are dropped. See [ParseScanTime].
//
// # Fixed Grid
//
// x and y hold scan angles in radians. The goes_imager_projection variable
// carries the geostationary projection attributes (perspective point height,
// ellipsoid axes, sub-satellite longitude, sweep axis). [GeosProjection]
// converts scan angles to geodetic coordinates on EPSG:4326. Pixels that
// look past the Earth's limb have no coordinates and come back as NaN.
//
// # Fire Pixels
//
// A pixel counts as a fire when:
//
//	Mask in {10, 11, 30, 31}   processed or saturated fire, high or medium confidence
//	DQF == 0                   good quality fire pixel
//
// When the smallest finite Temp value of the grid lies strictly between 320 K
// and 400 K, pixels must also report Temp > 300 K.
//
// # Region and Output
//
// Detections are kept only inside the South America bounding box
// (lat -55..13, lon -85..-30) after conversion to SIRGAS 2000 (EPSG:4674).
// Temperatures, areas and radiative power are rounded to two decimals, the
// scan start is reported in America/Sao_Paulo, and the point geometry is
// written as EWKT: SRID=4674;POINT(<lon> <lat>).
package domain
